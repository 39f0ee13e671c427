package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/database"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "Bearer hook-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.OpenLocal(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, database.MigrateShared(db))
	require.NoError(t, database.SeedCatalog(db, &database.Catalog{
		Plans:    database.DefaultPlans,
		Products: []models.Product{{Barcode: "5012345678900", Name: "Oat Crackers", SafetyRating: "safe"}},
	}))

	cfg := &config.Config{
		JWTSecret:             "route-test-secret",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      time.Hour,
		RevenueCatWebhookAuth: webhookSecret,
	}
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Setup(app, cfg, db)
	return app
}

type call struct {
	method string
	path   string
	token  string
	header map[string]string
	body   any
}

func do(t *testing.T, app *fiber.App, c call, out any) (int, dto.Envelope) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env dto.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

func register(t *testing.T, app *fiber.App, email string) dto.AuthResponse {
	t.Helper()
	var auth dto.AuthResponse
	status, env := do(t, app, call{method: http.MethodPost, path: "/api/auth/register",
		body: dto.RegisterRequest{Email: email, Password: "password123"}}, &auth)
	require.Equal(t, http.StatusCreated, status, env.Error)
	return auth
}

func TestRoutes_HealthAndPlansArePublic(t *testing.T) {
	app := newTestApp(t)

	var health dto.HealthResponse
	status, _ := do(t, app, call{method: http.MethodGet, path: "/api/health"}, &health)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health.DB)

	var plans dto.PlansResponse
	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/subscriptions/plans"}, &plans)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, plans.Plans, 2)
	assert.Equal(t, "pro_yearly", plans.Plans[1].ID)
}

func TestRoutes_ProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, call{method: http.MethodGet, path: "/api/subscriptions/status"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.CodeUnauthorized, env.Error.Code)

	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/subscriptions/status", token: "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoutes_ScanPurchaseAndSync(t *testing.T) {
	app := newTestApp(t)
	auth := register(t, app, "ana@example.com")

	var scan dto.ScanResponse
	status, _ := do(t, app, call{method: http.MethodGet, path: "/api/products/barcode/5012345678900", token: auth.AccessToken}, &scan)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Oat Crackers", scan.Product.Name)

	status, env := do(t, app, call{method: http.MethodGet, path: "/api/products/barcode/99999999", token: auth.AccessToken}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.CodeProductNotFound, env.Error.Code)

	status, env = do(t, app, call{method: http.MethodGet, path: "/api/products/barcode/abc", token: auth.AccessToken}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.CodeInvalidBarcode, env.Error.Code)

	status, env = do(t, app, call{method: http.MethodPost, path: "/api/subscriptions/purchase", token: auth.AccessToken,
		body: dto.PurchaseRequest{PlanID: "pro_monthly", PaymentMethod: dto.PaymentCard}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.CodePaymentRejected, env.Error.Code)

	status, env = do(t, app, call{method: http.MethodPost, path: "/api/subscriptions/purchase", token: auth.AccessToken,
		body: dto.PurchaseRequest{PlanID: "gold", PaymentMethod: dto.PaymentApplePay, PaymentToken: "tok"}}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.CodePlanNotFound, env.Error.Code)

	var purchase dto.PurchaseResponse
	status, _ = do(t, app, call{method: http.MethodPost, path: "/api/subscriptions/purchase", token: auth.AccessToken,
		body: dto.PurchaseRequest{PlanID: "pro_yearly", PaymentMethod: dto.PaymentApplePay, PaymentToken: "tok"}}, &purchase)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, purchase.Subscription.IsPro)

	var sync dto.SyncSavedItemsResponse
	status, _ = do(t, app, call{method: http.MethodPost, path: "/api/users/saved-items", token: auth.AccessToken,
		body: dto.SyncSavedItemsRequest{Items: []dto.SavedItemRef{{ProductID: 1, SavedAt: time.Now()}}}}, &sync)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, sync.Success)
	assert.Equal(t, 1, sync.Synced)

	var sub dto.SubscriptionStatusResponse
	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/subscriptions/status", token: auth.AccessToken}, &sub)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, sub.IsPro)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, int64(1), sub.ScansToday)
	assert.Equal(t, int64(1), sub.SavedItemsCount)

	var zoned dto.SubscriptionStatusResponse
	status, _ = do(t, app, call{method: http.MethodGet, path: "/api/subscriptions/status?tzOffset=120", token: auth.AccessToken}, &zoned)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), zoned.ScansToday)
}

func TestRoutes_WebhookAuth(t *testing.T) {
	app := newTestApp(t)
	auth := register(t, app, "ana@example.com")

	event := dto.RevenueCatWebhook{Event: dto.RevenueCatEvent{
		Type:           dto.EventInitialPurchase,
		AppUserID:      auth.User.ID.String(),
		ProductID:      "pro_monthly",
		PurchasedAtMs:  time.Now().UnixMilli(),
		ExpirationAtMs: time.Now().Add(24 * time.Hour).UnixMilli(),
	}}

	status, env := do(t, app, call{method: http.MethodPost, path: "/api/webhooks/revenuecat",
		header: map[string]string{"Authorization": "Bearer wrong"}, body: event}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, dto.CodeWebhookRejected, env.Error.Code)

	status, _ = do(t, app, call{method: http.MethodPost, path: "/api/webhooks/revenuecat",
		header: map[string]string{"Authorization": webhookSecret}, body: event}, nil)
	assert.Equal(t, http.StatusOK, status)

	var sub dto.SubscriptionStatusResponse
	_, _ = do(t, app, call{method: http.MethodGet, path: "/api/subscriptions/status", token: auth.AccessToken}, &sub)
	assert.True(t, sub.IsPro)
}

func TestRoutes_UnknownRouteUsesEnvelope(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, call{method: http.MethodGet, path: "/api/nope"}, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, dto.CodeNotFound, env.Error.Code)
}

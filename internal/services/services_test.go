package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/database"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBarcode = "5012345678900"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenLocal(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	require.NoError(t, database.MigrateShared(db))
	require.NoError(t, database.SeedCatalog(db, &database.Catalog{
		Plans: database.DefaultPlans,
		Products: []models.Product{{
			Barcode:      testBarcode,
			Name:         "Oat Crackers",
			Ingredients:  []string{"oats", "salt"},
			SafetyRating: "safe",
			FodmapLevel:  "low",
		}},
	}))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
}

func createUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	resp, err := NewAuthService(db, testConfig()).Register(&dto.RegisterRequest{
		Email:    uuid.NewString()[:8] + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return resp.User.ID
}

func TestAuthService_RegisterLoginRefreshLogout(t *testing.T) {
	db := openTestDB(t)
	svc := NewAuthService(db, testConfig())

	reg, err := svc.Register(&dto.RegisterRequest{Email: " Ana@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.AccessToken)

	_, err = svc.Register(&dto.RegisterRequest{Email: "ana@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.Register(&dto.RegisterRequest{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakCredentials)

	_, err = svc.Login(&dto.LoginRequest{Email: "ana@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	login, err := svc.Login(&dto.LoginRequest{Email: "ANA@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken, "rotated token cannot be reused")

	require.NoError(t, svc.Logout(reg.User.ID, &dto.LogoutRequest{RefreshToken: refreshed.RefreshToken}))
	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: refreshed.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPlanService_ListOrdered(t *testing.T) {
	svc := NewPlanService(openTestDB(t))

	plans, err := svc.List()
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "pro_monthly", plans[0].ID)
	assert.Equal(t, "pro_yearly", plans[1].ID)
	assert.Equal(t, int64(3999), plans[1].PriceCents)
	assert.NotEmpty(t, plans[1].Features)

	_, err = svc.Get("missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSubscriptionService_StatusWithoutSubscription(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	svc := NewSubscriptionService(db, NewPlanService(db))

	status, err := svc.Status(userID, time.Now())
	require.NoError(t, err)
	assert.False(t, status.IsPro)
	assert.Equal(t, models.SubscriptionNone, status.Status)
	assert.Nil(t, status.Plan)
	assert.Nil(t, status.ExpiresAt)
}

func TestSubscriptionService_PurchaseValidation(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	svc := NewSubscriptionService(db, NewPlanService(db))

	cases := []struct {
		name string
		req  dto.PurchaseRequest
		want error
	}{
		{"unknown method", dto.PurchaseRequest{PlanID: "pro_monthly", PaymentMethod: "cash"}, ErrInvalidPayment},
		{"card without details", dto.PurchaseRequest{PlanID: "pro_monthly", PaymentMethod: dto.PaymentCard}, ErrInvalidPayment},
		{"wallet without token", dto.PurchaseRequest{PlanID: "pro_monthly", PaymentMethod: dto.PaymentGooglePay}, ErrInvalidPayment},
		{"unknown plan", dto.PurchaseRequest{PlanID: "gold", PaymentMethod: dto.PaymentApplePay, PaymentToken: "tok"}, ErrPlanNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Purchase(userID, &tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubscriptionService_PurchaseThenStatus(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	svc := NewSubscriptionService(db, NewPlanService(db))

	resp, err := svc.Purchase(userID, &dto.PurchaseRequest{
		PlanID:        "pro_yearly",
		PaymentMethod: dto.PaymentCard,
		CardDetails:   &dto.CardDetails{Last4: "4242", Brand: "visa", ExpMonth: 12, ExpYear: 2030},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Subscription.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), *resp.Subscription.ExpiresAt, time.Minute)

	status, err := svc.Status(userID, time.Now())
	require.NoError(t, err)
	assert.True(t, status.IsPro)
	assert.Equal(t, models.SubscriptionActive, status.Status)
	require.NotNil(t, status.Plan)
	assert.Equal(t, "pro_yearly", status.Plan.ID)

	// Switching plans keeps a single row per user.
	_, err = svc.Purchase(userID, &dto.PurchaseRequest{PlanID: "pro_monthly", PaymentMethod: dto.PaymentApplePay, PaymentToken: "tok"})
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	later, err := svc.Status(userID, time.Now().AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.False(t, later.IsPro)
	assert.Equal(t, models.SubscriptionExpired, later.Status)
	assert.Nil(t, later.Plan)
}

func TestSubscriptionService_WebhookLifecycle(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	svc := NewSubscriptionService(db, NewPlanService(db))

	now := time.Now()
	event := dto.RevenueCatEvent{
		Type:           dto.EventInitialPurchase,
		AppUserID:      userID.String(),
		ProductID:      "pro_monthly",
		Store:          "APP_STORE",
		PurchasedAtMs:  now.UnixMilli(),
		ExpirationAtMs: now.Add(30 * 24 * time.Hour).UnixMilli(),
	}
	require.NoError(t, svc.HandleWebhookEvent(&event))

	status, err := svc.Status(userID, now)
	require.NoError(t, err)
	assert.True(t, status.IsPro)
	require.NotNil(t, status.Plan)
	assert.Equal(t, "pro_monthly", status.Plan.ID)

	event.Type = dto.EventCancellation
	require.NoError(t, svc.HandleWebhookEvent(&event))
	status, err = svc.Status(userID, now)
	require.NoError(t, err)
	assert.True(t, status.IsPro, "cancelled keeps access until period end")
	assert.Equal(t, models.SubscriptionCancelled, status.Status)

	event.Type = dto.EventExpiration
	require.NoError(t, svc.HandleWebhookEvent(&event))
	status, err = svc.Status(userID, now)
	require.NoError(t, err)
	assert.False(t, status.IsPro)
	assert.Equal(t, models.SubscriptionExpired, status.Status)

	event.Type = dto.EventInitialPurchase
	event.AppUserID = uuid.NewString()
	assert.ErrorIs(t, svc.HandleWebhookEvent(&event), ErrUnknownAppUser)

	event.Type = "TRANSFER"
	assert.NoError(t, svc.HandleWebhookEvent(&event))
}

func TestProductService_LookupRecordsScan(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	products := NewProductService(db)

	_, err := products.LookupBarcode(userID, "12ab")
	assert.ErrorIs(t, err, ErrInvalidBarcode)
	_, err = products.LookupBarcode(userID, "00000000")
	assert.ErrorIs(t, err, ErrProductNotFound)

	resp, err := products.LookupBarcode(userID, testBarcode)
	require.NoError(t, err)
	assert.Equal(t, "Oat Crackers", resp.Product.Name)
	assert.Equal(t, []string{"oats", "salt"}, resp.Product.Ingredients)
	assert.Equal(t, SourceDatabase, resp.Source)

	status, err := NewSubscriptionService(db, NewPlanService(db)).Status(userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.ScansToday)
}

func TestSavedItemsService_SyncReplacesSet(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	svc := NewSavedItemsService(db)
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	n, err := svc.Sync(userID, []dto.SavedItemRef{
		{ProductID: 1, SavedAt: t0},
		{ProductID: 2, SavedAt: t0.Add(time.Minute)},
		{ProductID: 1, SavedAt: t0.Add(time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.Sync(userID, []dto.SavedItemRef{{ProductID: 2, SavedAt: t0.Add(time.Minute)}, {ProductID: 3, SavedAt: t0.Add(2 * time.Minute)}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := svc.List(userID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ProductID)
	assert.Equal(t, int64(3), items[1].ProductID)

	_, err = svc.Sync(userID, []dto.SavedItemRef{{ProductID: 0}})
	assert.ErrorIs(t, err, ErrInvalidSavedItem)

	n, err = svc.Sync(userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubscriptionService_ScansTodayUsesCallerDay(t *testing.T) {
	db := openTestDB(t)
	userID := createUser(t, db)
	svc := NewSubscriptionService(db, NewPlanService(db))

	// 22:30 UTC on June 14 is already June 15 at UTC+2.
	lateEvening := time.Date(2026, 6, 14, 22, 30, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.ScanEvent{UserID: userID, ProductID: 1, Barcode: testBarcode, ScannedAt: lateEvening}).Error)

	utcNow := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
	status, err := svc.Status(userID, utcNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.ScansToday)

	status, err = svc.Status(userID, utcNow.In(time.FixedZone("UTC+2", 2*60*60)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.ScansToday)
}

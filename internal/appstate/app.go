// Package appstate builds the device-side application state once and hands
// it to the presentation layer. It owns the cross-component flows: session,
// scanning, purchasing and lifecycle hooks.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/apiclient"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/background"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/quota"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/saveditems"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/subscription"
)

var (
	ErrScanLimitReached = errors.New("daily scan limit reached")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrUnknownPlan      = errors.New("unknown plan")
)

const (
	taskReconcile = "subscription-reconcile"
	taskPlans     = "plans-load"
)

type App struct {
	Store        kvstore.Store
	API          *apiclient.Client
	Tasks        *background.Runner
	Quota        *quota.Limiter
	Subscription *subscription.Manager
	SavedItems   *saveditems.Store

	logger *slog.Logger
}

// ScanResult is a successful scan. Remaining is subscription.UnlimitedScans
// for Pro users.
type ScanResult struct {
	Product   dto.Product
	Source    string
	Remaining int
}

func New(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = logging.Discard()
	}

	api := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, logger.With("component", "api"))
	tasks := background.NewRunner(ctx, logger.With("component", "background"))
	limiter := quota.NewLimiter(store, cfg.DailyScanLimit, logger.With("component", "quota"))
	subs := subscription.NewManager(store, api, limiter, cfg, logger.With("component", "subscription"))
	saved := saveditems.NewStore(store, api, subs, tasks, logger.With("component", "saved_items"))

	a := &App{
		Store:        store,
		API:          api,
		Tasks:        tasks,
		Quota:        limiter,
		Subscription: subs,
		SavedItems:   saved,
		logger:       logger,
	}
	api.OnTokenExpired(a.handleTokenExpired)
	return a
}

// Restore loads the session, cached entitlement and saved items from the
// device store. It never touches the network.
func (a *App) Restore(ctx context.Context) {
	a.restoreSession(ctx)
	a.Quota.Load(ctx)
	a.Subscription.LoadCached(ctx)
	a.SavedItems.Load(ctx)
}

// Start restores local state synchronously, then loads plans and reconciles
// with the backend in the background.
func (a *App) Start(ctx context.Context) {
	a.Restore(ctx)
	a.Tasks.Go(taskPlans, a.Subscription.LoadPlans)
	a.reconcile()
}

// Close waits for background work and stops accepting more.
func (a *App) Close() {
	a.Tasks.Close()
}

// ScanBarcode runs one scan attempt. A free user over the daily cap gets
// ErrScanLimitReached before any network call. Failed lookups are not
// counted against the quota.
func (a *App) ScanBarcode(ctx context.Context, barcode string) (*ScanResult, error) {
	if !a.Quota.CanScan(ctx, a.Subscription.IsPro()) {
		return nil, ErrScanLimitReached
	}

	resp, err := a.API.ScanBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", barcode, err)
	}

	remaining, err := a.Subscription.DecrementScans(ctx)
	if err != nil {
		a.logger.Warn("scan counted in memory only", "error", err)
	}
	return &ScanResult{Product: resp.Product, Source: resp.Source, Remaining: remaining}, nil
}

// ScansRemaining is today's free allowance, or subscription.UnlimitedScans
// for Pro users.
func (a *App) ScansRemaining(ctx context.Context) int {
	if a.Subscription.IsPro() {
		return subscription.UnlimitedScans
	}
	return a.Quota.ScansRemaining(ctx)
}

// Purchase buys planID and records the entitlement locally right away. The
// expiry arrives with the reconciliation scheduled afterwards.
func (a *App) Purchase(ctx context.Context, req dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	if a.API.Token() == "" {
		return nil, ErrNotLoggedIn
	}
	plan, ok := a.findPlan(req.PlanID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, req.PlanID)
	}

	resp, err := a.API.PurchaseSubscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("purchase %s: %w", req.PlanID, err)
	}
	if resp.Subscription.Plan != nil {
		plan = *resp.Subscription.Plan
	}

	if err := a.Subscription.UpdateSubscription(ctx, plan); err != nil {
		a.logger.Error("purchase recorded in memory only", "plan_id", plan.ID, "error", err)
	}
	a.reconcile()
	return resp, nil
}

// OnForeground is called when the app returns to the foreground.
func (a *App) OnForeground() {
	a.reconcile()
}

// OnConnectivityRestored is called when the network comes back.
func (a *App) OnConnectivityRestored() {
	a.SavedItems.OnConnectivityRestored()
}

func (a *App) reconcile() {
	if a.API.Token() == "" {
		return
	}
	a.Tasks.Go(taskReconcile, a.Subscription.SyncWithAPI)
}

func (a *App) findPlan(id string) (dto.Plan, bool) {
	for _, p := range a.Subscription.Plans().Plans {
		if p.ID == id {
			return p, true
		}
	}
	return dto.Plan{}, false
}

// Package subscription holds the device's entitlement state machine and the
// purchasable plan catalog.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/config"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
)

const (
	DefaultFreeSavedItemsLimit = 20
	// UnlimitedSavedItems is the Pro saved-items capacity.
	UnlimitedSavedItems = math.MaxInt
	// UnlimitedScans is returned by DecrementScans for Pro users.
	UnlimitedScans = -1
)

// API is the slice of the backend the state machine consumes.
type API interface {
	GetSubscriptionStatus(ctx context.Context) (*dto.SubscriptionStatusResponse, error)
	GetPlans(ctx context.Context) ([]dto.Plan, error)
}

// ScanCounter is the free-tier scan bookkeeping, normally a *quota.Limiter.
type ScanCounter interface {
	DecrementScan(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

type Manager struct {
	store  kvstore.Store
	api    API
	scans  ScanCounter
	logger *slog.Logger

	freeSavedLimit int
	retryBase      time.Duration
	maxRetries     int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	state State
	plans PlansState
	// generation changes whenever the entitlement is set locally. A
	// reconciliation that started under an older generation is discarded.
	generation uint64
}

func NewManager(store kvstore.Store, api API, scans ScanCounter, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	m := &Manager{
		store:          store,
		api:            api,
		scans:          scans,
		logger:         logger,
		freeSavedLimit: DefaultFreeSavedItemsLimit,
		retryBase:      time.Second,
		maxRetries:     3,
		now:            time.Now,
		sleep:          sleepContext,
		state:          FreeState(),
	}
	if cfg != nil {
		if cfg.FreeSavedItemsLimit > 0 {
			m.freeSavedLimit = cfg.FreeSavedItemsLimit
		}
		if cfg.PlanRetryBase > 0 {
			m.retryBase = cfg.PlanRetryBase
		}
		switch {
		case cfg.PlanMaxRetries > 0:
			m.maxRetries = cfg.PlanMaxRetries
		case cfg.PlanMaxRetries <= config.NoPlanRetries:
			m.maxRetries = 0
		}
	}
	return m
}

// State returns the best-known entitlement, re-derived against the clock so a
// lapse is visible even between reconciliations.
func (m *Manager) State() State {
	m.mu.RLock()
	s := m.state
	m.mu.RUnlock()
	s, _ = s.Normalize(m.now())
	return s
}

func (m *Manager) IsPro() bool {
	return m.State().IsPro
}

// LastVerifiedAt is the time of the last successful reconciliation, nil if none.
func (m *Manager) LastVerifiedAt() *time.Time {
	return m.State().LastVerifiedAt
}

// SavedItemsLimit is the saved-items capacity for the current entitlement.
func (m *Manager) SavedItemsLimit() int {
	if m.IsPro() {
		return UnlimitedSavedItems
	}
	return m.freeSavedLimit
}

// LoadCached is the optimistic first phase of loading: it adopts the cached
// state, downgrading and re-persisting it if its expiry has passed.
func (m *Manager) LoadCached(ctx context.Context) State {
	cached := FreeState()
	if !m.store.Get(ctx, kvstore.KeySubscription, &cached) {
		cached = FreeState()
	}

	next, downgraded := cached.Normalize(m.now())

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	if downgraded {
		m.logger.Info("cached subscription expired", "expired_at", cached.ExpiresAt)
		if err := m.persist(ctx, next); err != nil {
			m.logger.Warn("failed to persist expired subscription", "error", err)
		}
	}
	return next
}

// LoadSubscription runs both phases: cached state first, then reconciliation
// with the backend. A reconciliation failure leaves the cached state in place
// and is returned for logging only.
func (m *Manager) LoadSubscription(ctx context.Context) error {
	m.LoadCached(ctx)
	return m.SyncWithAPI(ctx)
}

// SyncWithAPI adopts the backend's entitlement. A remote active subscription
// whose expiry already passed is treated as expired regardless of what the
// backend reports, since the backend may not have processed the lapse yet.
// The result is dropped if a purchase was recorded while the request was in
// flight.
func (m *Manager) SyncWithAPI(ctx context.Context) error {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	remote, err := m.api.GetSubscriptionStatus(ctx)
	if err != nil {
		m.logger.Warn("subscription reconciliation failed, keeping cached state", "error", err)
		return fmt.Errorf("subscription sync: %w", err)
	}

	now := m.now()
	next, downgraded := fromRemote(remote).Normalize(now)
	if downgraded {
		m.logger.Info("remote subscription past expiry, downgrading", "remote_status", remote.Status)
	}
	next.LastVerifiedAt = &now

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		m.logger.Info("discarding stale subscription reconciliation", "remote_status", remote.Status)
		return nil
	}
	m.state = next
	if err := m.persist(ctx, next); err != nil {
		m.logger.Warn("failed to persist reconciled subscription", "error", err)
	}
	return nil
}

// UpdateSubscription records a completed purchase. The expiry stays unknown
// until the next reconciliation.
func (m *Manager) UpdateSubscription(ctx context.Context, plan dto.Plan) error {
	m.mu.Lock()
	next := State{
		IsPro:          true,
		Plan:           &plan,
		Status:         StatusActive,
		LastVerifiedAt: m.state.LastVerifiedAt,
	}
	m.state = next
	m.generation++
	err := m.persist(ctx, next)
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to persist purchased subscription: %w", err)
	}
	m.logger.Info("subscription activated", "plan_id", plan.ID)
	return nil
}

// DecrementScans counts a scan against the free quota. Pro users are not
// counted and get UnlimitedScans.
func (m *Manager) DecrementScans(ctx context.Context) (int, error) {
	if m.IsPro() {
		return UnlimitedScans, nil
	}
	return m.scans.DecrementScan(ctx)
}

// ResetScans clears today's free-tier usage. No-op for Pro users.
func (m *Manager) ResetScans(ctx context.Context) error {
	if m.IsPro() {
		return nil
	}
	return m.scans.Reset(ctx)
}

func (m *Manager) persist(ctx context.Context, s State) error {
	return m.store.Set(ctx, kvstore.KeySubscription, s)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
)

var ErrPlansUnavailable = errors.New("subscription plans unavailable")

// PlansState is the transient catalog state shown on the paywall.
type PlansState struct {
	Plans    []dto.Plan
	Loading  bool
	Err      error
	Attempts int
}

func (m *Manager) Plans() PlansState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.plans
	p.Plans = append([]dto.Plan(nil), m.plans.Plans...)
	return p
}

// DefaultPlan is the highlighted selection: the second plan when there is
// one, otherwise the first.
func (m *Manager) DefaultPlan() (dto.Plan, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case len(m.plans.Plans) > 1:
		return m.plans.Plans[1], true
	case len(m.plans.Plans) == 1:
		return m.plans.Plans[0], true
	default:
		return dto.Plan{}, false
	}
}

// LoadPlans fetches the catalog, retrying failures with linear backoff
// (retryBase * attempt) up to maxRetries times. After the last failure the
// state settles on a terminal error until RetryPlans is called.
func (m *Manager) LoadPlans(ctx context.Context) error {
	m.mu.Lock()
	m.plans.Loading = true
	m.plans.Err = nil
	m.plans.Attempts = 0
	m.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			delay := m.retryBase * time.Duration(attempt)
			if err := m.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		m.mu.Lock()
		m.plans.Attempts = attempt + 1
		m.mu.Unlock()

		plans, err := m.api.GetPlans(ctx)
		if err == nil {
			m.mu.Lock()
			m.plans = PlansState{Plans: plans, Attempts: attempt + 1}
			m.mu.Unlock()
			return nil
		}
		lastErr = err
		m.logger.Warn("failed to load plans", "attempt", attempt+1, "error", err)
	}

	terminal := fmt.Errorf("%w: %w", ErrPlansUnavailable, lastErr)
	m.mu.Lock()
	m.plans.Loading = false
	m.plans.Err = terminal
	m.mu.Unlock()
	return terminal
}

// RetryPlans is the manual entry point after LoadPlans gave up.
func (m *Manager) RetryPlans(ctx context.Context) error {
	return m.LoadPlans(ctx)
}

package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlans_RetryBound(t *testing.T) {
	h := newHarness()
	h.api.planErrs = []error{networkErr}

	err := h.mgr.LoadPlans(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlansUnavailable)
	assert.Equal(t, 4, h.api.planCalls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, h.sleeps)

	state := h.mgr.Plans()
	assert.False(t, state.Loading)
	assert.Equal(t, 4, state.Attempts)
	assert.ErrorIs(t, state.Err, ErrPlansUnavailable)
	assert.Empty(t, state.Plans)
}

func TestLoadPlans_RecoversAfterFailures(t *testing.T) {
	h := newHarness()
	h.api.planErrs = []error{networkErr, networkErr, nil}
	h.api.plans = []dto.Plan{monthlyPlan, yearlyPlan}

	require.NoError(t, h.mgr.LoadPlans(context.Background()))

	assert.Equal(t, 3, h.api.planCalls)
	state := h.mgr.Plans()
	assert.NoError(t, state.Err)
	assert.False(t, state.Loading)
	assert.Equal(t, []dto.Plan{monthlyPlan, yearlyPlan}, state.Plans)

	def, ok := h.mgr.DefaultPlan()
	require.True(t, ok)
	assert.Equal(t, "pro_yearly", def.ID)
}

func TestLoadPlans_ManualRetryAfterTerminalError(t *testing.T) {
	h := newHarness()
	h.api.planErrs = []error{networkErr, networkErr, networkErr, networkErr, nil}
	h.api.plans = []dto.Plan{monthlyPlan}

	require.Error(t, h.mgr.LoadPlans(context.Background()))
	require.NoError(t, h.mgr.RetryPlans(context.Background()))

	assert.Equal(t, 5, h.api.planCalls)
	def, ok := h.mgr.DefaultPlan()
	require.True(t, ok)
	assert.Equal(t, "pro_monthly", def.ID)
}

func TestLoadPlans_StopsOnCancellation(t *testing.T) {
	h := newHarness()
	h.api.planErrs = []error{networkErr}
	h.mgr.sleep = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	err := h.mgr.LoadPlans(context.Background())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.api.planCalls)
}

func TestLoadPlans_RealSleepHonorsBase(t *testing.T) {
	h := newHarness()
	h.mgr.sleep = sleepContext
	h.api.planErrs = []error{errors.New("boom")}

	start := time.Now()
	require.Error(t, h.mgr.LoadPlans(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 6*time.Millisecond)
	assert.Equal(t, 4, h.api.planCalls)
}

func TestDefaultPlan_Empty(t *testing.T) {
	_, ok := newHarness().mgr.DefaultPlan()
	assert.False(t, ok)
}

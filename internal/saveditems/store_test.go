package saveditems

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/background"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
)

type fakeSync struct {
	mu      sync.Mutex
	calls   atomic.Int32
	last    []dto.SavedItemRef
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSync) SyncSavedItems(_ context.Context, items []dto.SavedItemRef) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.last = items
	f.mu.Unlock()
	return f.err
}

func (f *fakeSync) lastItems() []dto.SavedItemRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fixedCapacity struct{ limit atomic.Int64 }

func newCapacity(n int) *fixedCapacity {
	c := &fixedCapacity{}
	c.limit.Store(int64(n))
	return c
}

func (c *fixedCapacity) SavedItemsLimit() int { return int(c.limit.Load()) }

func product(id int64) dto.Product {
	return dto.Product{ID: id, Barcode: "0000000000000", Name: "Product"}
}

func newTestStore(t *testing.T, kv kvstore.Store, api SyncAPI, limit int) (*Store, *background.Runner, *fixedCapacity) {
	t.Helper()
	runner := background.NewRunner(context.Background(), nil)
	t.Cleanup(runner.Close)
	capacity := newCapacity(limit)
	return NewStore(kv, api, capacity, runner, nil), runner, capacity
}

func TestSaveProduct_Idempotent(t *testing.T) {
	ctx := context.Background()
	api := &fakeSync{}
	s, runner, _ := newTestStore(t, kvstore.NewMemoryStore(), api, 20)

	assert.True(t, s.SaveProduct(ctx, product(1)))
	first := s.Items()
	assert.True(t, s.SaveProduct(ctx, product(1)))
	runner.Wait()

	assert.Equal(t, first, s.Items())
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestSaveProduct_CapacityThenUpgrade(t *testing.T) {
	ctx := context.Background()
	s, runner, capacity := newTestStore(t, kvstore.NewMemoryStore(), &fakeSync{}, 20)

	for i := int64(1); i <= 20; i++ {
		require.True(t, s.SaveProduct(ctx, product(i)))
	}
	assert.False(t, s.CanSaveMore())
	assert.False(t, s.SaveProduct(ctx, product(21)))
	assert.Equal(t, 20, s.Count())
	assert.False(t, s.IsSaved(21))

	capacity.limit.Store(math.MaxInt64)
	assert.True(t, s.CanSaveMore())
	assert.True(t, s.SaveProduct(ctx, product(21)))
	assert.Equal(t, 21, s.Count())

	// A downgrade only blocks new saves.
	capacity.limit.Store(20)
	assert.Equal(t, 21, s.Count())
	assert.False(t, s.SaveProduct(ctx, product(22)))
	runner.Wait()
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	s, runner, _ := newTestStore(t, kv, &fakeSync{}, 20)

	require.True(t, s.SaveProduct(ctx, product(3)))
	require.True(t, s.SaveProduct(ctx, product(1)))
	require.True(t, s.SaveProduct(ctx, product(2)))
	s.RemoveProduct(ctx, 1)
	runner.Wait()

	reloaded, _, _ := newTestStore(t, kv, &fakeSync{}, 20)
	reloaded.Load(ctx)

	items := reloaded.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, "Product", items[0].Product.Name)
	assert.NotNil(t, reloaded.LastSyncedAt())
}

func TestRemoveProduct_MissingIsNoop(t *testing.T) {
	ctx := context.Background()
	api := &fakeSync{}
	s, runner, _ := newTestStore(t, kvstore.NewMemoryStore(), api, 20)

	s.RemoveProduct(ctx, 42)
	runner.Wait()

	assert.Equal(t, 0, s.Count())
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestSaveProduct_SurvivesSyncAndPersistFailures(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	kv.FailWrites = errors.New("disk full")
	api := &fakeSync{err: errors.New("NETWORK_ERROR")}
	s, runner, _ := newTestStore(t, kv, api, 20)

	assert.True(t, s.SaveProduct(ctx, product(7)))
	runner.Wait()

	assert.True(t, s.IsSaved(7))
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestSyncWithAPI_SendsIDsAndTimestamps(t *testing.T) {
	ctx := context.Background()
	api := &fakeSync{}
	s := NewStore(kvstore.NewMemoryStore(), api, newCapacity(20), nil, nil)
	savedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return savedAt }

	require.True(t, s.SaveProduct(ctx, product(5)))
	require.NoError(t, s.SyncWithAPI(ctx))

	assert.Equal(t, []dto.SavedItemRef{{ProductID: 5, SavedAt: savedAt}}, api.lastItems())
}

func TestSyncWithAPI_WrapsFailure(t *testing.T) {
	api := &fakeSync{err: errors.New("HTTP_500")}
	s := NewStore(kvstore.NewMemoryStore(), api, newCapacity(20), nil, nil)

	err := s.SyncWithAPI(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.err)
	assert.False(t, s.Syncing())
}

func TestSyncWithAPI_ConcurrentCallsCollapse(t *testing.T) {
	ctx := context.Background()
	api := &fakeSync{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewStore(kvstore.NewMemoryStore(), api, newCapacity(20), nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.SyncWithAPI(ctx) }()
	<-api.started
	assert.True(t, s.Syncing())

	assert.NoError(t, s.SyncWithAPI(ctx))
	assert.NoError(t, s.SyncWithAPI(ctx))

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), api.calls.Load())
	assert.False(t, s.Syncing())
}

func TestOnConnectivityRestored(t *testing.T) {
	ctx := context.Background()
	api := &fakeSync{}
	s, runner, _ := newTestStore(t, kvstore.NewMemoryStore(), api, 20)

	s.OnConnectivityRestored()
	runner.Wait()
	assert.Equal(t, int32(0), api.calls.Load(), "nothing pending")

	require.True(t, s.SaveProduct(ctx, product(9)))
	runner.Wait()
	require.Equal(t, int32(1), api.calls.Load())

	s.loading.Store(true)
	s.OnConnectivityRestored()
	runner.Wait()
	assert.Equal(t, int32(1), api.calls.Load(), "skipped while loading")

	s.loading.Store(false)
	s.OnConnectivityRestored()
	runner.Wait()
	assert.Equal(t, int32(2), api.calls.Load())
}

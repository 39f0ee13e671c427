// Package saveditems is the device's offline-first collection of saved
// products. Local state is authoritative for the user; the backend copy is
// brought up to date by best-effort background syncs.
package saveditems

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
)

// Item is one saved product. Product is a snapshot taken at save time.
type Item struct {
	ID      int64       `json:"id"`
	Product dto.Product `json:"product"`
	SavedAt time.Time   `json:"savedAt"`
}

// Collection is the unit persisted on every mutation.
type Collection struct {
	Items        []Item     `json:"items"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// SyncAPI pushes the full saved list to the backend.
type SyncAPI interface {
	SyncSavedItems(ctx context.Context, items []dto.SavedItemRef) error
}

// Capacity reports how many items the current entitlement may hold.
type Capacity interface {
	SavedItemsLimit() int
}

// Scheduler runs detached tasks, normally a *background.Runner.
type Scheduler interface {
	Go(name string, fn func(ctx context.Context) error) bool
}

type Store struct {
	kv       kvstore.Store
	api      SyncAPI
	capacity Capacity
	tasks    Scheduler
	logger   *slog.Logger
	now      func() time.Time

	mu           sync.RWMutex
	items        []Item
	lastSyncedAt *time.Time

	loading atomic.Bool
	syncing atomic.Bool
}

func NewStore(kv kvstore.Store, api SyncAPI, capacity Capacity, tasks Scheduler, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		kv:       kv,
		api:      api,
		capacity: capacity,
		tasks:    tasks,
		logger:   logger,
		now:      time.Now,
	}
}

// Load replaces the in-memory collection with the persisted one.
func (s *Store) Load(ctx context.Context) {
	s.loading.Store(true)
	defer s.loading.Store(false)

	var c Collection
	if !s.kv.Get(ctx, kvstore.KeySavedItems, &c) {
		c = Collection{}
	}

	s.mu.Lock()
	s.items = c.Items
	s.lastSyncedAt = c.LastSyncedAt
	s.mu.Unlock()
}

// Items returns a copy of the saved items in save order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) LastSyncedAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncedAt
}

func (s *Store) IsSaved(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// CanSaveMore reports whether one more item fits the current capacity.
func (s *Store) CanSaveMore() bool {
	limit := s.capacity.SavedItemsLimit()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) < limit
}

// SaveProduct saves a snapshot of product. Saving an already-saved product
// succeeds without changes. It returns false when the collection is at
// capacity, which callers turn into an upgrade prompt. Capacity is checked
// only here: a later downgrade never evicts existing items.
func (s *Store) SaveProduct(ctx context.Context, product dto.Product) bool {
	limit := s.capacity.SavedItemsLimit()

	s.mu.Lock()
	if s.indexOf(product.ID) >= 0 {
		s.mu.Unlock()
		return true
	}
	if len(s.items) >= limit {
		s.mu.Unlock()
		s.logger.Info("saved items at capacity", "limit", limit)
		return false
	}

	now := s.now()
	s.items = append(s.items, Item{ID: product.ID, Product: product, SavedAt: now})
	s.lastSyncedAt = &now
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.scheduleSync()
	return true
}

// RemoveProduct deletes the item with id, if present.
func (s *Store) RemoveProduct(ctx context.Context, id int64) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = slices.Delete(slices.Clone(s.items), idx, idx+1)
	now := s.now()
	s.lastSyncedAt = &now
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.scheduleSync()
}

// OnConnectivityRestored pushes pending items once the network is back,
// unless a load is still running.
func (s *Store) OnConnectivityRestored() {
	if s.loading.Load() || s.Count() == 0 {
		return
	}
	s.scheduleSync()
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
}

func (s *Store) snapshotLocked() Collection {
	return Collection{Items: slices.Clone(s.items), LastSyncedAt: s.lastSyncedAt}
}

// persist writes the whole collection. A failed write is logged and the
// in-memory state stays authoritative.
func (s *Store) persist(ctx context.Context, c Collection) {
	if err := s.kv.Set(ctx, kvstore.KeySavedItems, c); err != nil {
		s.logger.Error("failed to persist saved items", "count", len(c.Items), "error", err)
	}
}

package saveditems

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
)

const syncTaskName = "saved-items-sync"

// SyncWithAPI pushes the full local list to the backend. Overlapping calls
// collapse: while one sync is in flight, further calls return nil at once
// without queueing. The next mutation schedules a fresh sync anyway.
func (s *Store) SyncWithAPI(ctx context.Context) error {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer s.syncing.Store(false)

	s.mu.RLock()
	refs := make([]dto.SavedItemRef, 0, len(s.items))
	for _, it := range s.items {
		refs = append(refs, dto.SavedItemRef{ProductID: it.ID, SavedAt: it.SavedAt})
	}
	s.mu.RUnlock()

	if err := s.api.SyncSavedItems(ctx, refs); err != nil {
		return fmt.Errorf("saved items sync: %w", err)
	}
	s.logger.Debug("saved items synced", "count", len(refs))
	return nil
}

// Syncing reports whether a sync is in flight.
func (s *Store) Syncing() bool {
	return s.syncing.Load()
}

// scheduleSync hands a sync to the background scheduler. Its outcome never
// reaches the mutation that triggered it.
func (s *Store) scheduleSync() {
	if s.tasks == nil {
		return
	}
	s.tasks.Go(syncTaskName, s.SyncWithAPI)
}

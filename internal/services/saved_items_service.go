package services

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidSavedItem = errors.New("saved item requires a positive productId")

type SavedItemsService struct {
	db *gorm.DB
}

func NewSavedItemsService(db *gorm.DB) *SavedItemsService {
	return &SavedItemsService{db: db}
}

// Sync replaces the user's saved set with items. The device is the source
// of truth, so rows missing from items are deleted. Duplicate product ids
// keep their first occurrence.
func (s *SavedItemsService) Sync(userID uuid.UUID, items []dto.SavedItemRef) (int, error) {
	rows := make([]models.SavedItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return 0, ErrInvalidSavedItem
		}
		if _, dup := seen[it.ProductID]; dup {
			continue
		}
		seen[it.ProductID] = struct{}{}
		rows = append(rows, models.SavedItem{
			UserID:    userID,
			ProductID: it.ProductID,
			SavedAt:   it.SavedAt.UTC(),
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.SavedItem{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sync saved items: %w", err)
	}
	return len(rows), nil
}

// List returns the user's saved items, oldest first.
func (s *SavedItemsService) List(userID uuid.UUID) ([]dto.SavedItemRef, error) {
	var rows []models.SavedItem
	if err := s.db.Where("user_id = ?", userID).Order("saved_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list saved items: %w", err)
	}
	out := make([]dto.SavedItemRef, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.SavedItemRef{ProductID: r.ProductID, SavedAt: r.SavedAt})
	}
	return out, nil
}

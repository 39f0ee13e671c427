package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedItem is the server copy of a product a user saved on their device.
type SavedItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_items_user_product" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_saved_items_user_product" json:"product_id"`
	SavedAt   time.Time `gorm:"not null" json:"saved_at"`
	CreatedAt time.Time `json:"created_at"`
}

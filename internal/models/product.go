package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a scannable food item with its ingredient safety assessment.
type Product struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id" yaml:"id"`
	Barcode      string    `gorm:"size:14;not null;uniqueIndex" json:"barcode" yaml:"barcode"`
	Name         string    `gorm:"size:255;not null" json:"name" yaml:"name"`
	Brand        string    `gorm:"size:255" json:"brand" yaml:"brand"`
	ImageURL     string    `gorm:"type:text" json:"image_url" yaml:"image_url"`
	Ingredients  []string  `gorm:"type:jsonb;serializer:json" json:"ingredients" yaml:"ingredients"`
	SafetyRating string    `gorm:"size:20" json:"safety_rating" yaml:"safety_rating"`
	FodmapLevel  string    `gorm:"size:20" json:"fodmap_level" yaml:"fodmap_level"`
	Allergens    []string  `gorm:"type:jsonb;serializer:json" json:"allergens" yaml:"allergens"`
	CreatedAt    time.Time `json:"-" yaml:"-"`
	UpdatedAt    time.Time `json:"-" yaml:"-"`
}

// ScanEvent records a successful barcode lookup by a user.
type ScanEvent struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_scan_events_user_time" json:"user_id"`
	ProductID int64     `gorm:"not null" json:"product_id"`
	Barcode   string    `gorm:"size:14" json:"barcode"`
	ScannedAt time.Time `gorm:"not null;index:idx_scan_events_user_time" json:"scanned_at"`
}

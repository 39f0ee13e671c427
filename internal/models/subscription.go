package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
	SubscriptionNone      = "none"
)

// Subscription is the server-side record of a user's entitlement. One row per user.
type Subscription struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	PlanID             string    `gorm:"size:64;index" json:"plan_id"`
	RevenueCatID       string    `gorm:"index;size:255" json:"revenuecat_id"`
	ProductID          string    `gorm:"size:255" json:"product_id"`
	PaymentMethod      string    `gorm:"size:32" json:"payment_method"`
	Status             string    `gorm:"not null;default:'none';size:50" json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	User               User      `gorm:"foreignKey:UserID" json:"-"`
}

// Entitled reports whether the record grants Pro access at now.
// Cancelled subscriptions keep access until the period ends.
func (s *Subscription) Entitled(now time.Time) bool {
	if s.Status != SubscriptionActive && s.Status != SubscriptionCancelled {
		return false
	}
	return s.CurrentPeriodEnd.After(now)
}

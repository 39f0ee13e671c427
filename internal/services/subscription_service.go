package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidPayment = errors.New("invalid payment details")
	ErrUnknownAppUser = errors.New("webhook app user does not match any account")
)

type SubscriptionService struct {
	db    *gorm.DB
	plans *PlanService
}

func NewSubscriptionService(db *gorm.DB, plans *PlanService) *SubscriptionService {
	return &SubscriptionService{db: db, plans: plans}
}

// Status reports the user's entitlement at now. An active or cancelled
// subscription whose period ended is reported as expired. ScansToday counts
// from midnight in now's location, so callers pass now in the device's zone.
func (s *SubscriptionService) Status(userID uuid.UUID, now time.Time) (*dto.SubscriptionStatusResponse, error) {
	resp := &dto.SubscriptionStatusResponse{Status: models.SubscriptionNone}

	var sub models.Subscription
	err := s.db.Where("user_id = ?", userID).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	default:
		s.applySubscription(resp, &sub, now)
	}

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UTC()
	if err := s.db.Model(&models.ScanEvent{}).
		Where("user_id = ? AND scanned_at >= ?", userID, dayStart).
		Count(&resp.ScansToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	if err := s.db.Model(&models.SavedItem{}).
		Where("user_id = ?", userID).
		Count(&resp.SavedItemsCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count saved items: %w", err)
	}
	return resp, nil
}

func (s *SubscriptionService) applySubscription(resp *dto.SubscriptionStatusResponse, sub *models.Subscription, now time.Time) {
	resp.Status = sub.Status
	if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionCancelled {
		return
	}
	if !sub.Entitled(now) {
		resp.Status = models.SubscriptionExpired
		return
	}

	resp.IsPro = true
	end := sub.CurrentPeriodEnd
	resp.ExpiresAt = &end
	if sub.PlanID == "" {
		return
	}
	plan, err := s.plans.Get(sub.PlanID)
	if err != nil {
		slog.Warn("subscription references unavailable plan", "plan_id", sub.PlanID, "error", err)
		return
	}
	p := planDTO(plan)
	resp.Plan = &p
}

// Purchase activates planID for the user. Payment capture happens with the
// payment provider; this only checks the request carries what the chosen
// method needs.
func (s *SubscriptionService) Purchase(userID uuid.UUID, req *dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	if err := validatePayment(req); err != nil {
		return nil, err
	}

	plan, err := s.plans.Get(req.PlanID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := models.Subscription{
		ID:                 uuid.New(),
		UserID:             userID,
		PlanID:             plan.ID,
		ProductID:          plan.ID,
		PaymentMethod:      req.PaymentMethod,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   plan.PeriodEnd(now),
	}
	if err := s.upsert(&sub, "plan_id", "product_id", "payment_method"); err != nil {
		return nil, err
	}

	p := planDTO(plan)
	end := sub.CurrentPeriodEnd
	return &dto.PurchaseResponse{
		Success: true,
		Subscription: dto.SubscriptionSummary{
			IsPro:     true,
			Plan:      &p,
			Status:    models.SubscriptionActive,
			ExpiresAt: &end,
		},
		Message: "Subscription activated",
	}, nil
}

func validatePayment(req *dto.PurchaseRequest) error {
	switch req.PaymentMethod {
	case dto.PaymentCard:
		if req.CardDetails == nil || len(req.CardDetails.Last4) != 4 {
			return fmt.Errorf("%w: card details required", ErrInvalidPayment)
		}
	case dto.PaymentApplePay, dto.PaymentGooglePay:
		if req.PaymentToken == "" {
			return fmt.Errorf("%w: payment token required", ErrInvalidPayment)
		}
	default:
		return fmt.Errorf("%w: unsupported payment method %q", ErrInvalidPayment, req.PaymentMethod)
	}
	return nil
}

// HandleWebhookEvent applies a store subscription event. The event's
// app_user_id is the account id the device logged in with.
func (s *SubscriptionService) HandleWebhookEvent(event *dto.RevenueCatEvent) error {
	switch event.Type {
	case dto.EventInitialPurchase:
		return s.handleInitialPurchase(event)
	case dto.EventRenewal:
		return s.handleRenewal(event)
	case dto.EventCancellation:
		return s.setStatus(event, models.SubscriptionCancelled)
	case dto.EventExpiration:
		return s.setStatus(event, models.SubscriptionExpired)
	default:
		return nil
	}
}

func (s *SubscriptionService) handleInitialPurchase(event *dto.RevenueCatEvent) error {
	userID, err := s.lookupAppUser(event.AppUserID)
	if err != nil {
		return err
	}

	sub := models.Subscription{
		ID:                 uuid.New(),
		UserID:             userID,
		RevenueCatID:       event.AppUserID,
		ProductID:          event.ProductID,
		PaymentMethod:      event.Store,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: msToTime(event.PurchasedAtMs),
		CurrentPeriodEnd:   msToTime(event.ExpirationAtMs),
	}
	if _, err := s.plans.Get(event.ProductID); err == nil {
		sub.PlanID = event.ProductID
	}
	return s.upsert(&sub, "plan_id", "revenuecat_id", "product_id", "payment_method")
}

func (s *SubscriptionService) handleRenewal(event *dto.RevenueCatEvent) error {
	userID, err := s.lookupAppUser(event.AppUserID)
	if err != nil {
		return err
	}

	res := s.db.Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":               models.SubscriptionActive,
			"current_period_start": msToTime(event.PurchasedAtMs),
			"current_period_end":   msToTime(event.ExpirationAtMs),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to renew subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.handleInitialPurchase(event)
	}
	return nil
}

func (s *SubscriptionService) setStatus(event *dto.RevenueCatEvent, status string) error {
	userID, err := s.lookupAppUser(event.AppUserID)
	if err != nil {
		return err
	}
	if err := s.db.Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to set subscription status %s: %w", status, err)
	}
	return nil
}

func (s *SubscriptionService) lookupAppUser(appUserID string) (uuid.UUID, error) {
	id, err := uuid.Parse(appUserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownAppUser, appUserID)
	}
	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up app user: %w", err)
	}
	if count == 0 {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownAppUser, appUserID)
	}
	return id, nil
}

// upsert writes the user's single subscription row, replacing the period
// and status plus the named columns.
func (s *SubscriptionService) upsert(sub *models.Subscription, columns ...string) error {
	columns = append(columns, "status", "current_period_start", "current_period_end", "updated_at")
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func msToTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
}

package dto

import "time"

// Plan is the purchasable plan shape shared by the API and the device cache.
type Plan struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PriceCents int64    `json:"price_cents"`
	Currency   string   `json:"currency"`
	Interval   string   `json:"interval"`
	Features   []string `json:"features"`
}

type PlansResponse struct {
	Plans []Plan `json:"plans"`
}

type SubscriptionStatusResponse struct {
	IsPro           bool       `json:"isPro"`
	Plan            *Plan      `json:"plan"`
	Status          string     `json:"status"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ScansToday      int64      `json:"scansToday"`
	SavedItemsCount int64      `json:"savedItemsCount"`
}

type CardDetails struct {
	Last4    string `json:"last4"`
	Brand    string `json:"brand"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
}

const (
	PaymentCard      = "card"
	PaymentApplePay  = "apple_pay"
	PaymentGooglePay = "google_pay"
)

type PurchaseRequest struct {
	PlanID        string       `json:"planId"`
	PaymentMethod string       `json:"paymentMethod"`
	PaymentToken  string       `json:"paymentToken,omitempty"`
	CardDetails   *CardDetails `json:"cardDetails,omitempty"`
}

type SubscriptionSummary struct {
	IsPro     bool       `json:"isPro"`
	Plan      *Plan      `json:"plan"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type PurchaseResponse struct {
	Success      bool                `json:"success"`
	Subscription SubscriptionSummary `json:"subscription"`
	Message      string              `json:"message,omitempty"`
}

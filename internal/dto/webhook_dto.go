package dto

// RevenueCatWebhook is the store-side subscription event payload.
type RevenueCatWebhook struct {
	APIVersion string          `json:"api_version"`
	Event      RevenueCatEvent `json:"event"`
}

type RevenueCatEvent struct {
	Type           string   `json:"type"`
	ID             string   `json:"id"`
	AppUserID      string   `json:"app_user_id"`
	ProductID      string   `json:"product_id"`
	EntitlementIDs []string `json:"entitlement_ids"`
	PurchasedAtMs  int64    `json:"purchased_at_ms"`
	ExpirationAtMs int64    `json:"expiration_at_ms"`
	Store          string   `json:"store"`
	Environment    string   `json:"environment"`
}

const (
	EventInitialPurchase = "INITIAL_PURCHASE"
	EventRenewal         = "RENEWAL"
	EventCancellation    = "CANCELLATION"
	EventExpiration      = "EXPIRATION"
)

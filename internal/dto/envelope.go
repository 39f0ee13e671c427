package dto

import "encoding/json"

// Envelope wraps every API response body.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes shared by the server and the device client.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodePlanNotFound     = "PLAN_NOT_FOUND"
	CodeProductNotFound  = "PRODUCT_NOT_FOUND"
	CodeInvalidBarcode   = "INVALID_BARCODE"
	CodePaymentRejected  = "PAYMENT_REJECTED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeWebhookRejected  = "WEBHOOK_REJECTED"
	CodeInvalidSavedItem = "INVALID_SAVED_ITEM"
)

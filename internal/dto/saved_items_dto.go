package dto

import "time"

type SavedItemRef struct {
	ProductID int64     `json:"productId"`
	SavedAt   time.Time `json:"savedAt"`
}

type SyncSavedItemsRequest struct {
	Items []SavedItemRef `json:"items"`
}

type SyncSavedItemsResponse struct {
	Success bool   `json:"success"`
	Synced  int    `json:"synced"`
	Error   string `json:"error,omitempty"`
}

package appstate

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
)

// Preferences is the user's dietary profile, kept only on the device.
type Preferences struct {
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	Allergies           []string `json:"allergies"`
	LowFodmap           bool     `json:"lowFodmap"`
}

func (a *App) Preferences(ctx context.Context) Preferences {
	var p Preferences
	if !a.Store.Get(ctx, kvstore.KeyPreferences, &p) {
		return Preferences{}
	}
	return p
}

func (a *App) SavePreferences(ctx context.Context, p Preferences) error {
	if err := a.Store.Set(ctx, kvstore.KeyPreferences, p); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

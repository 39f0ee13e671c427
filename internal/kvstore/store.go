// Package kvstore is the device's durable key-value store. Values are JSON
// documents; every higher-level component owns a disjoint set of keys.
package kvstore

import (
	"context"
	"errors"
)

// Keys owned by the device components.
const (
	KeyScanQuota    = "scan_quota"
	KeySubscription = "subscription_cache"
	KeySavedItems   = "saved_items"
	KeyPreferences  = "user_preferences"
	KeySession      = "session"
)

var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is the persistence contract shared by all device components.
//
// Get decodes the value under key into dst and reports whether it was found.
// Missing keys, I/O failures and undecodable values all read as absent; the
// failure is logged, never returned. Set and Remove return their errors so
// callers can decide to continue with in-memory state.
type Store interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

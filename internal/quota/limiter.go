// Package quota enforces the free tier's daily scan allowance on this device.
package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/kvstore"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
)

const DefaultDailyLimit = 30

const dateLayout = "2006-01-02"

// Record is the persisted per-device usage for one calendar day.
type Record struct {
	Date      string `json:"date"`
	ScansUsed int    `json:"scansUsed"`
}

type Limiter struct {
	store  kvstore.Store
	limit  int
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cached *Record
}

func NewLimiter(store kvstore.Store, dailyLimit int, logger *slog.Logger) *Limiter {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Limiter{store: store, limit: dailyLimit, logger: logger, now: time.Now}
}

// DailyLimit returns the free-tier cap.
func (l *Limiter) DailyLimit() int {
	return l.limit
}

// CanScan reports whether another scan is allowed. Pro users are never limited.
func (l *Limiter) CanScan(ctx context.Context, isPro bool) bool {
	if isPro {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(ctx).ScansUsed < l.limit
}

// DecrementScan consumes one scan and returns what is left of today's cap.
// It does not refuse past the cap: a scan the caller already committed to is
// always counted, so the result can be negative. Gate with CanScan first.
func (l *Limiter) DecrementScan(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.current(ctx)
	rec.ScansUsed++
	l.cached = &rec
	remaining := l.limit - rec.ScansUsed
	if err := l.store.Set(ctx, kvstore.KeyScanQuota, rec); err != nil {
		l.logger.Error("failed to persist scan quota", "scans_used", rec.ScansUsed, "error", err)
		return remaining, err
	}
	return remaining, nil
}

// ScansRemaining returns today's remaining scans, never below zero.
func (l *Limiter) ScansRemaining(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return max(0, l.limit-l.current(ctx).ScansUsed)
}

// Usage returns today's record after the rollover check.
func (l *Limiter) Usage(ctx context.Context) Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(ctx)
}

// Reset zeroes today's usage.
func (l *Limiter) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := Record{Date: l.today()}
	l.cached = &rec
	return l.store.Set(ctx, kvstore.KeyScanQuota, rec)
}

// Load drops the in-memory record and rereads it from the store.
func (l *Limiter) Load(ctx context.Context) Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
	return l.current(ctx)
}

// current returns today's record. The in-memory copy wins over the store so
// usage survives failed writes; it is replaced with a fresh record when the
// day has rolled over. Callers hold l.mu.
func (l *Limiter) current(ctx context.Context) Record {
	today := l.today()
	if l.cached != nil && l.cached.Date == today {
		return *l.cached
	}

	var rec Record
	if l.cached == nil && l.store.Get(ctx, kvstore.KeyScanQuota, &rec) && rec.Date == today && rec.ScansUsed >= 0 {
		l.cached = &rec
		return rec
	}

	rec = Record{Date: today}
	l.cached = &rec
	if err := l.store.Set(ctx, kvstore.KeyScanQuota, rec); err != nil {
		l.logger.Warn("failed to persist scan quota rollover", "date", today, "error", err)
	}
	return rec
}

func (l *Limiter) today() string {
	return l.now().Format(dateLayout)
}

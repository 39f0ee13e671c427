package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/logging"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one persisted key.
type Entry struct {
	Key       string         `gorm:"primaryKey;size:191"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

// GormStore keeps entries in a gorm-managed table, normally the device's
// local SQLite state file.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormStore(db *gorm.DB, logger *slog.Logger) (*GormStore, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &GormStore{db: db, logger: logger}, nil
}

func (s *GormStore) Get(ctx context.Context, key string, dst any) bool {
	if key == "" {
		return false
	}
	var entry Entry
	err := s.db.WithContext(ctx).Where(&Entry{Key: key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if err != nil {
		s.logger.Error("kv read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		s.logger.Error("kv value corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (s *GormStore) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("kv encode failed", "key", key, "error", err)
		return fmt.Errorf("kvstore: encode %s: %w", key, err)
	}

	entry := Entry{Key: key, Value: datatypes.JSON(raw), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		s.logger.Error("kv write failed", "key", key, "error", err)
		return fmt.Errorf("kvstore: write %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.db.WithContext(ctx).Where(&Entry{Key: key}).Delete(&Entry{}).Error; err != nil {
		s.logger.Error("kv delete failed", "key", key, "error", err)
		return fmt.Errorf("kvstore: delete %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Entry{}).Error; err != nil {
		s.logger.Error("kv clear failed", "error", err)
		return fmt.Errorf("kvstore: clear: %w", err)
	}
	return nil
}

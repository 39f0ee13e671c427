package models

import "time"

const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

type Plan struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Name       string    `gorm:"size:100;not null" json:"name" yaml:"name"`
	PriceCents int64     `gorm:"not null" json:"price_cents" yaml:"price_cents"`
	Currency   string    `gorm:"size:3;not null;default:'USD'" json:"currency" yaml:"currency"`
	Interval   string    `gorm:"size:16;not null" json:"interval" yaml:"interval"`
	Features   []string  `gorm:"type:jsonb;serializer:json" json:"features" yaml:"features"`
	SortOrder  int       `gorm:"default:0;index" json:"-" yaml:"sort_order"`
	Active     bool      `gorm:"default:true" json:"-" yaml:"-"`
	CreatedAt  time.Time `json:"-" yaml:"-"`
	UpdatedAt  time.Time `json:"-" yaml:"-"`
}

// PeriodEnd returns the end of a billing period that starts at start.
func (p *Plan) PeriodEnd(start time.Time) time.Time {
	if p.Interval == IntervalYear {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

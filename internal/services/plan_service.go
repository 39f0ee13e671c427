package services

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"gorm.io/gorm"
)

var ErrPlanNotFound = errors.New("plan not found")

type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

// List returns the active plans in catalog order.
func (s *PlanService) List() ([]dto.Plan, error) {
	var plans []models.Plan
	if err := s.db.Where("active = ?", true).Order("sort_order ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	out := make([]dto.Plan, 0, len(plans))
	for i := range plans {
		out = append(out, planDTO(&plans[i]))
	}
	return out, nil
}

// Get returns an active plan by id.
func (s *PlanService) Get(id string) (*models.Plan, error) {
	var plan models.Plan
	err := s.db.Where("id = ? AND active = ?", id, true).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	return &plan, nil
}

func planDTO(p *models.Plan) dto.Plan {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return dto.Plan{
		ID:         p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Currency:   p.Currency,
		Interval:   p.Interval,
		Features:   features,
	}
}

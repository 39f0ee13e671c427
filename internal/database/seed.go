package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Catalog is the YAML seed for purchasable plans and known products.
type Catalog struct {
	Plans    []models.Plan    `yaml:"plans"`
	Products []models.Product `yaml:"products"`
}

var DefaultPlans = []models.Plan{
	{ID: "pro_monthly", Name: "Pro Monthly", PriceCents: 499, Currency: "USD", Interval: models.IntervalMonth,
		Features: []string{"Unlimited scans", "Unlimited saved items", "Ingredient breakdown"}, SortOrder: 1},
	{ID: "pro_yearly", Name: "Pro Yearly", PriceCents: 3999, Currency: "USD", Interval: models.IntervalYear,
		Features: []string{"Unlimited scans", "Unlimited saved items", "Ingredient breakdown", "Two months free"}, SortOrder: 2},
}

// LoadCatalog parses a catalog file. A missing file yields the default plans.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Catalog{Plans: DefaultPlans}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(catalog.Plans) == 0 {
		catalog.Plans = DefaultPlans
	}
	for i := range catalog.Plans {
		catalog.Plans[i].Active = true
		if catalog.Plans[i].Currency == "" {
			catalog.Plans[i].Currency = "USD"
		}
	}
	return &catalog, nil
}

// SeedCatalog upserts plans by id and products by barcode.
func SeedCatalog(db *gorm.DB, catalog *Catalog) error {
	for i := range catalog.Plans {
		plan := catalog.Plans[i]
		plan.Active = true
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price_cents", "currency", "interval", "features", "sort_order", "active"}),
		}).Create(&plan).Error; err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", plan.ID, err)
		}
	}

	for i := range catalog.Products {
		product := catalog.Products[i]
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "brand", "image_url", "ingredients", "safety_rating", "fodmap_level", "allergens"}),
		}).Create(&product).Error; err != nil {
			return fmt.Errorf("failed to seed product %s: %w", product.Barcode, err)
		}
	}

	slog.Info("catalog seeded", "plans", len(catalog.Plans), "products", len(catalog.Products))
	return nil
}

package services

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidBarcode  = errors.New("barcode must be 8 to 14 digits")
	ErrProductNotFound = errors.New("product not found")
)

// SourceDatabase marks a product served from the local catalog.
const SourceDatabase = "database"

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// LookupBarcode finds a product and records the scan for userID.
func (s *ProductService) LookupBarcode(userID uuid.UUID, barcode string) (*dto.ScanResponse, error) {
	if !barcodePattern.MatchString(barcode) {
		return nil, ErrInvalidBarcode
	}

	var product models.Product
	err := s.db.Where("barcode = ?", barcode).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up barcode: %w", err)
	}

	event := models.ScanEvent{
		UserID:    userID,
		ProductID: product.ID,
		Barcode:   barcode,
		ScannedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&event).Error; err != nil {
		slog.Error("failed to record scan event", "user_id", userID, "barcode", barcode, "error", err)
	}

	return &dto.ScanResponse{Product: productDTO(&product), Source: SourceDatabase}, nil
}

func productDTO(p *models.Product) dto.Product {
	return dto.Product{
		ID:           p.ID,
		Barcode:      p.Barcode,
		Name:         p.Name,
		Brand:        p.Brand,
		ImageURL:     p.ImageURL,
		Ingredients:  p.Ingredients,
		SafetyRating: p.SafetyRating,
		FodmapLevel:  p.FodmapLevel,
		Allergens:    p.Allergens,
	}
}

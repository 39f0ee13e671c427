package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
plans:
  - id: pro_starter
    name: Pro Starter
    price_cents: 199
    interval: month
    sort_order: 1
    features: [Unlimited scans]
products:
  - barcode: "12345678"
    name: Rice Cakes
    ingredients: [rice, salt]
    allergens: []
`

func TestLoadCatalog_MissingFileUsesDefaults(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlans, catalog.Plans)
	assert.Empty(t, catalog.Products)
}

func TestLoadCatalog_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Plans, 1)
	assert.Equal(t, "pro_starter", catalog.Plans[0].ID)
	assert.Equal(t, "USD", catalog.Plans[0].Currency)
	assert.True(t, catalog.Plans[0].Active)
	require.Len(t, catalog.Products, 1)
	assert.Equal(t, []string{"rice", "salt"}, catalog.Products[0].Ingredients)
}

func TestLoadCatalog_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plans: [unterminated"), 0o600))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestSeedCatalog_Upserts(t *testing.T) {
	db, err := OpenLocal(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	require.NoError(t, MigrateShared(db))

	catalog := &Catalog{
		Plans:    DefaultPlans,
		Products: []models.Product{{Barcode: "12345678", Name: "Rice Cakes"}},
	}
	require.NoError(t, SeedCatalog(db, catalog))

	catalog.Products[0].Name = "Brown Rice Cakes"
	require.NoError(t, SeedCatalog(db, catalog))

	var products []models.Product
	require.NoError(t, db.Find(&products).Error)
	require.Len(t, products, 1)
	assert.Equal(t, "Brown Rice Cakes", products[0].Name)

	var plans int64
	require.NoError(t, db.Model(&models.Plan{}).Count(&plans).Error)
	assert.Equal(t, int64(2), plans)
	assert.NoError(t, Ping(db))
}

package repository

import (
	"database/sql"
	"testing"

	"github.com/quayside/airdropd/internal/db"
	"github.com/quayside/airdropd/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database.DB
}

// createTestCampaign inserts a campaign with the given token configs and
// recipient addresses and returns it together with its token configs.
func createTestCampaign(t *testing.T, d *sql.DB, tokens []models.TokenConfig, addresses []string) (*models.Campaign, []models.TokenConfig) {
	t.Helper()

	repo := NewCampaignRepository(d)
	campaign := &models.Campaign{
		WalletAddress:   "rSourceWallet123",
		Name:            "test campaign",
		IntervalSeconds: 5,
	}

	if err := repo.CreateWithSnapshot(campaign, tokens, addresses); err != nil {
		t.Fatalf("CreateWithSnapshot() error = %v", err)
	}

	got, err := repo.GetTokenConfigs(campaign.ID)
	if err != nil {
		t.Fatalf("GetTokenConfigs() error = %v", err)
	}

	return campaign, got
}

package repository

import (
	"strings"
	"testing"

	"github.com/quayside/airdropd/internal/models"
)

func TestLogRepository_AppendAndList(t *testing.T) {
	d := setupTestDB(t)
	repo := NewLogRepository(d)

	campaign, _ := createTestCampaign(t, d, []models.TokenConfig{fixedToken(1)}, []string{"rAlice"})

	repo.Info(campaign.ID, "campaign started", nil)
	repo.Success(campaign.ID, "payment confirmed", map[string]any{"tx_hash": "ABC123", "amount": 10.0})
	repo.Error(campaign.ID, "payment failed: tecPATH_DRY", nil)

	entries, total, err := repo.List(models.LogFilter{CampaignID: campaign.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Fatalf("List() = %d entries, want 3", total)
	}

	if entries[0].Type != models.LogInfo || entries[0].Message != "campaign started" {
		t.Errorf("entries[0] = %q %q", entries[0].Type, entries[0].Message)
	}
	if !strings.Contains(entries[1].Details, "ABC123") {
		t.Errorf("entries[1].Details = %q, want tx_hash payload", entries[1].Details)
	}
	if entries[2].Type != models.LogError {
		t.Errorf("entries[2].Type = %q, want error", entries[2].Type)
	}
}

func TestLogRepository_FilterByType(t *testing.T) {
	d := setupTestDB(t)
	repo := NewLogRepository(d)

	campaign, _ := createTestCampaign(t, d, []models.TokenConfig{fixedToken(1)}, []string{"rAlice"})

	repo.Info(campaign.ID, "one", nil)
	repo.Warning(campaign.ID, "two", nil)
	repo.Warning(campaign.ID, "three", nil)

	entries, total, err := repo.List(models.LogFilter{CampaignID: campaign.ID, Type: models.LogWarning})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Errorf("List(type=warning) = %d entries, want 2", total)
	}
}

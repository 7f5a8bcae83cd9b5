package repository

import (
	"strings"
	"testing"

	"github.com/quayside/airdropd/internal/models"
)

func TestRecipientRepository_InsertionOrderPreserved(t *testing.T) {
	d := setupTestDB(t)
	repo := NewRecipientRepository(d)

	// All snapshot rows share one created_at, so only the insertion order can
	// tell them apart; the imported list must be walked top to bottom.
	addresses := []string{"r01", "r02", "r03", "r04", "r05", "r06", "r07", "r08", "r09", "r10"}
	campaign, _ := createTestCampaign(t, d, []models.TokenConfig{fixedToken(1)}, addresses)

	pending, err := repo.GetPending(campaign.ID)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != len(addresses) {
		t.Fatalf("GetPending() = %d recipients, want %d", len(pending), len(addresses))
	}
	for i, rec := range pending {
		if rec.WalletAddress != addresses[i] {
			t.Fatalf("GetPending()[%d] = %q, want %q", i, rec.WalletAddress, addresses[i])
		}
	}

	listed, _, err := repo.List(models.RecipientFilter{CampaignID: campaign.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for i, rec := range listed {
		if rec.WalletAddress != addresses[i] {
			t.Fatalf("List()[%d] = %q, want %q", i, rec.WalletAddress, addresses[i])
		}
	}
}

func TestRecipientRepository_GetPending_StableOrder(t *testing.T) {
	d := setupTestDB(t)
	repo := NewRecipientRepository(d)

	campaign, _ := createTestCampaign(t, d, []models.TokenConfig{fixedToken(1)}, []string{"rAlice", "rBob", "rCarol"})

	pending, err := repo.GetPending(campaign.ID)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("GetPending() = %d recipients, want 3", len(pending))
	}

	// Finished recipients drop out; a half-done one stays in.
	repo.UpdateStatus(pending[0].ID, models.RecipientCompleted, "", 1)
	repo.UpdateStatus(pending[1].ID, models.RecipientProcessing, "", 0)

	pending, err = repo.GetPending(campaign.ID)
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("GetPending() after updates = %d recipients, want 2", len(pending))
	}
	if pending[0].Status != models.RecipientProcessing {
		t.Errorf("pending[0].Status = %q, want processing", pending[0].Status)
	}
}

func TestRecipientRepository_UpdateStatus_Terminal(t *testing.T) {
	d := setupTestDB(t)
	repo := NewRecipientRepository(d)

	campaign, _ := createTestCampaign(t, d, []models.TokenConfig{fixedToken(1)}, []string{"rAlice"})
	recipients, _, _ := repo.List(models.RecipientFilter{CampaignID: campaign.ID})
	id := recipients[0].ID

	if err := repo.UpdateStatus(id, models.RecipientProcessing, "", 0); err != nil {
		t.Fatalf("UpdateStatus(processing) error = %v", err)
	}
	got, _ := repo.GetByID(id)
	if got.ProcessedAt != nil {
		t.Error("ProcessedAt set on non-terminal status")
	}

	if err := repo.UpdateStatus(id, models.RecipientCompleted, "", 42.5); err != nil {
		t.Fatalf("UpdateStatus(completed) error = %v", err)
	}
	got, _ = repo.GetByID(id)
	if got.Status != models.RecipientCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.AmountSent != 42.5 {
		t.Errorf("AmountSent = %v, want 42.5", got.AmountSent)
	}
	if got.ProcessedAt == nil {
		t.Error("ProcessedAt not set on terminal status")
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain list",
			input: "rAlice\nrBob\nrCarol\n",
			want:  []string{"rAlice", "rBob", "rCarol"},
		},
		{
			name:  "header row skipped",
			input: "address\nrAlice\nrBob\n",
			want:  []string{"rAlice", "rBob"},
		},
		{
			name:  "extra columns ignored",
			input: "wallet_address,note\nrAlice,vip\nrBob,\n",
			want:  []string{"rAlice", "rBob"},
		},
		{
			name:  "duplicates dropped keeping order",
			input: "rBob\nrAlice\nrBob\n",
			want:  []string{"rBob", "rAlice"},
		},
		{
			name:  "blank lines and whitespace",
			input: "  rAlice  \n\nrBob\n",
			want:  []string{"rAlice", "rBob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseCSV() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCSV() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseCSV()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

package repository

import (
	"testing"

	"github.com/quayside/airdropd/internal/models"
)

func TestTransactionRepository_GetByRecipientAndToken(t *testing.T) {
	d := setupTestDB(t)
	txRepo := NewTransactionRepository(d)
	recRepo := NewRecipientRepository(d)

	campaign, tokens := createTestCampaign(t, d, []models.TokenConfig{fixedToken(10)}, []string{"rAlice"})
	recipients, _, _ := recRepo.List(models.RecipientFilter{CampaignID: campaign.ID})

	got, err := txRepo.GetByRecipientAndToken(recipients[0].ID, tokens[0].ID)
	if err != nil {
		t.Fatalf("GetByRecipientAndToken() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetByRecipientAndToken() before create = %+v, want nil", got)
	}

	tx := &models.Transaction{CampaignID: campaign.ID, RecipientID: recipients[0].ID, TokenID: tokens[0].ID}
	if err := txRepo.Create(tx); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err = txRepo.GetByRecipientAndToken(recipients[0].ID, tokens[0].ID)
	if err != nil {
		t.Fatalf("GetByRecipientAndToken() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByRecipientAndToken() = nil after create")
	}
	if got.ID != tx.ID {
		t.Errorf("ID = %s, want %s", got.ID, tx.ID)
	}
	if got.Status != models.TxPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
}

func TestTransactionRepository_UniquePair(t *testing.T) {
	d := setupTestDB(t)
	txRepo := NewTransactionRepository(d)
	recRepo := NewRecipientRepository(d)

	campaign, tokens := createTestCampaign(t, d, []models.TokenConfig{fixedToken(10)}, []string{"rAlice"})
	recipients, _, _ := recRepo.List(models.RecipientFilter{CampaignID: campaign.ID})

	first := &models.Transaction{CampaignID: campaign.ID, RecipientID: recipients[0].ID, TokenID: tokens[0].ID}
	if err := txRepo.Create(first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := &models.Transaction{CampaignID: campaign.ID, RecipientID: recipients[0].ID, TokenID: tokens[0].ID}
	if err := txRepo.Create(second); err == nil {
		t.Fatal("Create() for same (recipient, token) pair should fail")
	}
}

func TestTransactionRepository_Lifecycle(t *testing.T) {
	d := setupTestDB(t)
	txRepo := NewTransactionRepository(d)
	recRepo := NewRecipientRepository(d)

	campaign, tokens := createTestCampaign(t, d, []models.TokenConfig{fixedToken(10)}, []string{"rAlice"})
	recipients, _, _ := recRepo.List(models.RecipientFilter{CampaignID: campaign.ID})

	tx := &models.Transaction{CampaignID: campaign.ID, RecipientID: recipients[0].ID, TokenID: tokens[0].ID}
	txRepo.Create(tx)

	if err := txRepo.MarkProcessing(tx.ID, 10); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	got, _ := txRepo.GetByRecipientAndToken(recipients[0].ID, tokens[0].ID)
	if got.Status != models.TxProcessing {
		t.Errorf("Status = %q, want processing", got.Status)
	}
	if got.Amount != 10 {
		t.Errorf("Amount = %v, want 10", got.Amount)
	}

	if err := txRepo.MarkCompleted(tx.ID, "DEADBEEF", 0.000012); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	got, _ = txRepo.GetByRecipientAndToken(recipients[0].ID, tokens[0].ID)
	if got.Status != models.TxCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.TxHash != "DEADBEEF" {
		t.Errorf("TxHash = %q, want DEADBEEF", got.TxHash)
	}
	if got.FeeXRP != 0.000012 {
		t.Errorf("FeeXRP = %v, want 0.000012", got.FeeXRP)
	}
	if got.ProcessedAt == nil {
		t.Error("ProcessedAt not set on completion")
	}
}

func TestTransactionRepository_MarkFailed(t *testing.T) {
	d := setupTestDB(t)
	txRepo := NewTransactionRepository(d)
	recRepo := NewRecipientRepository(d)

	campaign, tokens := createTestCampaign(t, d, []models.TokenConfig{fixedToken(10)}, []string{"rAlice"})
	recipients, _, _ := recRepo.List(models.RecipientFilter{CampaignID: campaign.ID})

	tx := &models.Transaction{CampaignID: campaign.ID, RecipientID: recipients[0].ID, TokenID: tokens[0].ID}
	txRepo.Create(tx)

	if err := txRepo.MarkFailed(tx.ID, "payment failed: tecUNFUNDED_PAYMENT"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	got, _ := txRepo.GetByRecipientAndToken(recipients[0].ID, tokens[0].ID)
	if got.Status != models.TxFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "payment failed: tecUNFUNDED_PAYMENT" {
		t.Errorf("ErrorMessage = %q", got.ErrorMessage)
	}
}

func TestTransactionRepository_ListAndCount(t *testing.T) {
	d := setupTestDB(t)
	txRepo := NewTransactionRepository(d)
	recRepo := NewRecipientRepository(d)

	campaign, tokens := createTestCampaign(t, d, []models.TokenConfig{fixedToken(1), fixedToken(2)}, []string{"rAlice", "rBob"})
	recipients, _, _ := recRepo.List(models.RecipientFilter{CampaignID: campaign.ID})

	for _, rec := range recipients {
		for i, tok := range tokens {
			tx := &models.Transaction{CampaignID: campaign.ID, RecipientID: rec.ID, TokenID: tok.ID}
			txRepo.Create(tx)
			if i == 0 {
				txRepo.MarkCompleted(tx.ID, "HASH", 0.000012)
			}
		}
	}

	all, total, err := txRepo.List(models.TransactionFilter{CampaignID: campaign.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Errorf("List() = %d transactions, want 4", total)
	}

	completed, total, err := txRepo.List(models.TransactionFilter{CampaignID: campaign.ID, Status: models.TxCompleted})
	if err != nil {
		t.Fatalf("List(status) error = %v", err)
	}
	if total != 2 || len(completed) != 2 {
		t.Errorf("List(status=completed) = %d, want 2", total)
	}

	byRec, err := txRepo.ListByRecipient(recipients[0].ID)
	if err != nil {
		t.Fatalf("ListByRecipient() error = %v", err)
	}
	if len(byRec) != 2 {
		t.Errorf("ListByRecipient() = %d, want 2", len(byRec))
	}

	n, err := txRepo.CountCompleted(campaign.ID)
	if err != nil {
		t.Fatalf("CountCompleted() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountCompleted() = %d, want 2", n)
	}
}

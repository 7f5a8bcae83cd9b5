package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quayside/airdropd/internal/models"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByRecipientAndToken returns the transaction for a (recipient, token)
// pair, or nil if none exists. The pair is unique, so this is the idempotency
// lookup the engine uses on resume.
func (r *TransactionRepository) GetByRecipientAndToken(recipientID, tokenID string) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var processedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, campaign_id, recipient_id, token_id, amount, fee_xrp, status, tx_hash, error_message, processed_at, created_at
		FROM transactions WHERE recipient_id = ? AND token_id = ?`, recipientID, tokenID,
	).Scan(&tx.ID, &tx.CampaignID, &tx.RecipientID, &tx.TokenID, &tx.Amount, &tx.FeeXRP, &tx.Status,
		&tx.TxHash, &tx.ErrorMessage, &processedAt, &tx.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if processedAt.Valid {
		tx.ProcessedAt = &processedAt.Time
	}

	return tx, nil
}

// Create creates a transaction row in status pending
func (r *TransactionRepository) Create(tx *models.Transaction) error {
	tx.ID = uuid.New().String()
	tx.Status = models.TxPending
	tx.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO transactions (id, campaign_id, recipient_id, token_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.CampaignID, tx.RecipientID, tx.TokenID, tx.Amount, tx.Status, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// MarkProcessing moves a transaction into processing with the calculated amount
func (r *TransactionRepository) MarkProcessing(id string, amount float64) error {
	_, err := r.db.Exec("UPDATE transactions SET status = ?, amount = ? WHERE id = ?",
		models.TxProcessing, amount, id)
	return err
}

// MarkCompleted records a confirmed payment
func (r *TransactionRepository) MarkCompleted(id, txHash string, feeXRP float64) error {
	_, err := r.db.Exec(`
		UPDATE transactions SET status = ?, tx_hash = ?, fee_xrp = ?, error_message = '', processed_at = ?
		WHERE id = ?`,
		models.TxCompleted, txHash, feeXRP, time.Now(), id,
	)
	return err
}

// MarkFailed records a failed unit with its reason
func (r *TransactionRepository) MarkFailed(id, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE transactions SET status = ?, error_message = ?, processed_at = ?
		WHERE id = ?`,
		models.TxFailed, errorMsg, time.Now(), id,
	)
	return err
}

// List returns transactions with optional filtering
func (r *TransactionRepository) List(filter models.TransactionFilter) ([]models.Transaction, int, error) {
	countQuery := "SELECT COUNT(*) FROM transactions WHERE campaign_id = ?"
	args := []any{filter.CampaignID}

	if filter.RecipientID != "" {
		countQuery += " AND recipient_id = ?"
		args = append(args, filter.RecipientID)
	}
	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, campaign_id, recipient_id, token_id, amount, fee_xrp, status, tx_hash, error_message, processed_at, created_at
		FROM transactions WHERE campaign_id = ?`

	args = []any{filter.CampaignID}
	if filter.RecipientID != "" {
		query += " AND recipient_id = ?"
		args = append(args, filter.RecipientID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var processedAt sql.NullTime

		err := rows.Scan(&tx.ID, &tx.CampaignID, &tx.RecipientID, &tx.TokenID, &tx.Amount, &tx.FeeXRP,
			&tx.Status, &tx.TxHash, &tx.ErrorMessage, &processedAt, &tx.CreatedAt)
		if err != nil {
			return nil, 0, err
		}

		if processedAt.Valid {
			tx.ProcessedAt = &processedAt.Time
		}

		txs = append(txs, tx)
	}

	return txs, total, nil
}

// ListByRecipient returns all transactions for one recipient in stable order
func (r *TransactionRepository) ListByRecipient(recipientID string) ([]models.Transaction, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, recipient_id, token_id, amount, fee_xrp, status, tx_hash, error_message, processed_at, created_at
		FROM transactions WHERE recipient_id = ?
		ORDER BY created_at, id`, recipientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var processedAt sql.NullTime

		err := rows.Scan(&tx.ID, &tx.CampaignID, &tx.RecipientID, &tx.TokenID, &tx.Amount, &tx.FeeXRP,
			&tx.Status, &tx.TxHash, &tx.ErrorMessage, &processedAt, &tx.CreatedAt)
		if err != nil {
			return nil, err
		}

		if processedAt.Valid {
			tx.ProcessedAt = &processedAt.Time
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// CountCompleted returns the number of completed transactions for a campaign
func (r *TransactionRepository) CountCompleted(campaignID string) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions WHERE campaign_id = ? AND status = ?",
		campaignID, models.TxCompleted).Scan(&n)
	return n, err
}

package repository

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/quayside/airdropd/internal/models"
)

type RecipientRepository struct {
	db *sql.DB
}

func NewRecipientRepository(db *sql.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// GetByID returns a recipient by ID
func (r *RecipientRepository) GetByID(id string) (*models.Recipient, error) {
	rec := &models.Recipient{}
	var processedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, campaign_id, wallet_address, status, amount_sent, error_message, processed_at, created_at
		FROM recipients WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.CampaignID, &rec.WalletAddress, &rec.Status, &rec.AmountSent, &rec.ErrorMessage, &processedAt, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if processedAt.Valid {
		rec.ProcessedAt = &processedAt.Time
	}

	return rec, nil
}

// List returns recipients with optional filtering
func (r *RecipientRepository) List(filter models.RecipientFilter) ([]models.Recipient, int, error) {
	countQuery := "SELECT COUNT(*) FROM recipients WHERE campaign_id = ?"
	args := []any{filter.CampaignID}

	if filter.Status != "" {
		countQuery += " AND status = ?"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, campaign_id, wallet_address, status, amount_sent, error_message, processed_at, created_at
		FROM recipients WHERE campaign_id = ?`

	args = []any{filter.CampaignID}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY rowid"

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

	recipients := []models.Recipient{}
	for rows.Next() {
		var rec models.Recipient
		var processedAt sql.NullTime

		err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.WalletAddress, &rec.Status, &rec.AmountSent,
			&rec.ErrorMessage, &processedAt, &rec.CreatedAt)
		if err != nil {
			return nil, 0, err
		}

		if processedAt.Valid {
			rec.ProcessedAt = &processedAt.Time
		}

		recipients = append(recipients, rec)
	}

	return recipients, total, nil
}

// GetPending returns a campaign's recipients that still need work, in
// insertion order. The snapshot rows share one created_at timestamp, so the
// implicit rowid is the only key that preserves the imported list order.
func (r *RecipientRepository) GetPending(campaignID string) ([]models.Recipient, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, wallet_address, status, amount_sent, error_message, processed_at, created_at
		FROM recipients
		WHERE campaign_id = ? AND status IN ('pending', 'processing')
		ORDER BY rowid`, campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []models.Recipient{}
	for rows.Next() {
		var rec models.Recipient
		var processedAt sql.NullTime

		err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.WalletAddress, &rec.Status, &rec.AmountSent,
			&rec.ErrorMessage, &processedAt, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}

		if processedAt.Valid {
			rec.ProcessedAt = &processedAt.Time
		}

		recipients = append(recipients, rec)
	}

	return recipients, nil
}

// UpdateStatus updates recipient status; terminal statuses also set processed_at
func (r *RecipientRepository) UpdateStatus(id, status, errorMsg string, amountSent float64) error {
	var processedAt *time.Time
	switch status {
	case models.RecipientCompleted, models.RecipientPartial, models.RecipientFailed:
		now := time.Now()
		processedAt = &now
	}

	_, err := r.db.Exec(`
		UPDATE recipients SET status = ?, error_message = ?, amount_sent = ?, processed_at = COALESCE(?, processed_at)
		WHERE id = ?`,
		status, errorMsg, amountSent, processedAt, id,
	)
	return err
}

// ParseCSV reads recipient wallet addresses from CSV data. The address is
// taken from the first column; a header row named "address" or
// "wallet_address" is skipped. Duplicates are dropped, order is preserved.
func ParseCSV(reader io.Reader) ([]string, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1

	addresses := []string{}
	seen := map[string]bool{}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		addr := strings.TrimSpace(record[0])
		if addr == "" {
			continue
		}
		switch strings.ToLower(addr) {
		case "address", "wallet_address", "wallet":
			continue
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		addresses = append(addresses, addr)
	}

	return addresses, nil
}

package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quayside/airdropd/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// CreateWithSnapshot creates a campaign together with its token configs and
// recipient rows in one transaction. Totals are fixed here:
// total_transactions = len(addresses) * len(tokens).
func (r *CampaignRepository) CreateWithSnapshot(c *models.Campaign, tokens []models.TokenConfig, addresses []string) error {
	c.ID = uuid.New().String()
	c.Status = models.CampaignPending
	c.TotalRecipients = len(addresses)
	c.TotalTransactions = len(addresses) * len(tokens)
	c.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO campaigns (id, wallet_address, name, interval_seconds, status, total_recipients, total_transactions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.WalletAddress, c.Name, c.IntervalSeconds, c.Status, c.TotalRecipients, c.TotalTransactions, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	tokStmt, err := tx.Prepare(`
		INSERT INTO token_configs (id, campaign_id, currency_code, issuer_address, distribution_method,
			amount, min_amount, max_amount, balance_percent, source_currency, source_issuer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tokStmt.Close()

	for i := range tokens {
		tokens[i].ID = uuid.New().String()
		tokens[i].CampaignID = c.ID
		tokens[i].CreatedAt = c.CreatedAt

		_, err := tokStmt.Exec(tokens[i].ID, c.ID, tokens[i].CurrencyCode, tokens[i].IssuerAddress,
			tokens[i].DistributionMethod, tokens[i].Amount, tokens[i].MinAmount, tokens[i].MaxAmount,
			tokens[i].BalancePercent, tokens[i].SourceCurrency, tokens[i].SourceIssuer, tokens[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create token config: %w", err)
		}
	}

	recStmt, err := tx.Prepare(`
		INSERT INTO recipients (id, campaign_id, wallet_address, status, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer recStmt.Close()

	for _, addr := range addresses {
		_, err := recStmt.Exec(uuid.New().String(), c.ID, addr, models.RecipientPending, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create recipient: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID returns a campaign by ID
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	c := &models.Campaign{}
	var startedAt, pausedAt, completedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, wallet_address, name, interval_seconds, status, total_recipients, total_transactions,
			completed_recipients, failed_recipients, completed_transactions, failed_transactions,
			total_fees_paid, created_at, started_at, paused_at, completed_at
		FROM campaigns WHERE id = ?`, id,
	).Scan(&c.ID, &c.WalletAddress, &c.Name, &c.IntervalSeconds, &c.Status, &c.TotalRecipients, &c.TotalTransactions,
		&c.CompletedRecipients, &c.FailedRecipients, &c.CompletedTransactions, &c.FailedTransactions,
		&c.TotalFeesPaid, &c.CreatedAt, &startedAt, &pausedAt, &completedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		c.StartedAt = &startedAt.Time
	}
	if pausedAt.Valid {
		c.PausedAt = &pausedAt.Time
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}

	return c, nil
}

// List returns campaigns with optional filtering
func (r *CampaignRepository) List(filter models.CampaignListFilter) ([]models.Campaign, int, error) {
	countQuery := "SELECT COUNT(*) FROM campaigns WHERE 1=1"
	args := []any{}

	if filter.WalletAddress != "" {
		countQuery += " AND wallet_address = ?"
		args = append(args, filter.WalletAddress)
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
		SELECT id, wallet_address, name, interval_seconds, status, total_recipients, total_transactions,
			completed_recipients, failed_recipients, completed_transactions, failed_transactions,
			total_fees_paid, created_at, started_at, paused_at, completed_at
		FROM campaigns WHERE 1=1`

	args = []any{}
	if filter.WalletAddress != "" {
		query += " AND wallet_address = ?"
		args = append(args, filter.WalletAddress)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY created_at DESC"

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

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		var startedAt, pausedAt, completedAt sql.NullTime

		err := rows.Scan(&c.ID, &c.WalletAddress, &c.Name, &c.IntervalSeconds, &c.Status, &c.TotalRecipients, &c.TotalTransactions,
			&c.CompletedRecipients, &c.FailedRecipients, &c.CompletedTransactions, &c.FailedTransactions,
			&c.TotalFeesPaid, &c.CreatedAt, &startedAt, &pausedAt, &completedAt)
		if err != nil {
			return nil, 0, err
		}

		if startedAt.Valid {
			c.StartedAt = &startedAt.Time
		}
		if pausedAt.Valid {
			c.PausedAt = &pausedAt.Time
		}
		if completedAt.Valid {
			c.CompletedAt = &completedAt.Time
		}

		campaigns = append(campaigns, c)
	}

	return campaigns, total, nil
}

// UpdateStatus updates campaign status and the matching timestamp
func (r *CampaignRepository) UpdateStatus(id, status string) error {
	now := time.Now()
	var startedAt, pausedAt, completedAt *time.Time

	switch status {
	case models.CampaignRunning:
		startedAt = &now
	case models.CampaignPaused:
		pausedAt = &now
	case models.CampaignCompleted, models.CampaignFailed:
		completedAt = &now
	}

	// started_at marks the first transition to running and survives
	// pause/resume cycles; paused_at tracks the most recent pause.
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, started_at = COALESCE(started_at, ?),
			paused_at = COALESCE(?, paused_at), completed_at = COALESCE(?, completed_at)
		WHERE id = ?`,
		status, startedAt, pausedAt, completedAt, id,
	)
	return err
}

// RecomputeAggregates rescans recipient and transaction rows and writes the
// derived counters back to the campaign. This is the single source of truth
// for the counters; nothing maintains them incrementally.
func (r *CampaignRepository) RecomputeAggregates(id string) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET
			completed_recipients = (SELECT COUNT(*) FROM recipients WHERE campaign_id = ? AND status IN ('completed', 'partial')),
			failed_recipients = (SELECT COUNT(*) FROM recipients WHERE campaign_id = ? AND status = 'failed'),
			completed_transactions = (SELECT COUNT(*) FROM transactions WHERE campaign_id = ? AND status = 'completed'),
			failed_transactions = (SELECT COUNT(*) FROM transactions WHERE campaign_id = ? AND status = 'failed'),
			total_fees_paid = (SELECT COALESCE(SUM(fee_xrp), 0) FROM transactions WHERE campaign_id = ? AND status = 'completed')
		WHERE id = ?`,
		id, id, id, id, id, id,
	)
	return err
}

// Delete deletes a campaign and, via foreign keys, its snapshot rows
func (r *CampaignRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM campaigns WHERE id = ?", id)
	return err
}

// GetTokenConfigs returns a campaign's token configs in stable creation order
func (r *CampaignRepository) GetTokenConfigs(campaignID string) ([]models.TokenConfig, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, currency_code, COALESCE(issuer_address, ''), distribution_method,
			amount, min_amount, max_amount, balance_percent, COALESCE(source_currency, ''),
			COALESCE(source_issuer, ''), total_sent, created_at
		FROM token_configs
		WHERE campaign_id = ?
		ORDER BY created_at, id`, campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []models.TokenConfig{}
	for rows.Next() {
		var t models.TokenConfig
		err := rows.Scan(&t.ID, &t.CampaignID, &t.CurrencyCode, &t.IssuerAddress, &t.DistributionMethod,
			&t.Amount, &t.MinAmount, &t.MaxAmount, &t.BalancePercent, &t.SourceCurrency,
			&t.SourceIssuer, &t.TotalSent, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	return tokens, nil
}

// AddTokenSent adds a successful payout amount to a token's running total
func (r *CampaignRepository) AddTokenSent(tokenID string, amount float64) error {
	_, err := r.db.Exec("UPDATE token_configs SET total_sent = total_sent + ? WHERE id = ?", amount, tokenID)
	return err
}

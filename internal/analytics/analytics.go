package analytics

import (
	"database/sql"
)

// Summary is the read-time rollup for one campaign. It is recomputed from
// persisted rows on every call; nothing maintains these numbers
// incrementally, so they cannot drift across pause/resume cycles.
type Summary struct {
	CampaignID            string  `json:"campaign_id"`
	TotalTransactions     int     `json:"total_transactions"`
	CompletedTransactions int     `json:"completed_transactions"`
	FailedTransactions    int     `json:"failed_transactions"`
	PendingTransactions   int     `json:"pending_transactions"`
	SuccessRate           float64 `json:"success_rate"`
	TotalAmountSent       float64 `json:"total_amount_sent"`
	TotalFeesPaid         float64 `json:"total_fees_paid"`
	UniqueRecipients      int     `json:"unique_recipients"`
	PartialRecipients     int     `json:"partial_recipients"`
	AveragePayout         float64 `json:"average_payout"`
}

type Aggregator struct {
	db *sql.DB
}

func New(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Summarize scans a campaign's transaction and recipient rows and returns
// the derived figures.
func (a *Aggregator) Summarize(campaignID string) (*Summary, error) {
	s := &Summary{CampaignID: campaignID}

	err := a.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN fee_xrp ELSE 0 END), 0)
		FROM transactions WHERE campaign_id = ?`, campaignID,
	).Scan(&s.TotalTransactions, &s.CompletedTransactions, &s.FailedTransactions, &s.TotalAmountSent, &s.TotalFeesPaid)
	if err != nil {
		return nil, err
	}

	err = a.db.QueryRow(`
		SELECT
			COUNT(DISTINCT recipient_id)
		FROM transactions WHERE campaign_id = ? AND status = 'completed'`, campaignID,
	).Scan(&s.UniqueRecipients)
	if err != nil {
		return nil, err
	}

	err = a.db.QueryRow(`
		SELECT COUNT(*) FROM recipients WHERE campaign_id = ? AND status = 'partial'`, campaignID,
	).Scan(&s.PartialRecipients)
	if err != nil {
		return nil, err
	}

	s.PendingTransactions = s.TotalTransactions - s.CompletedTransactions - s.FailedTransactions
	if s.TotalTransactions > 0 {
		s.SuccessRate = float64(s.CompletedTransactions) / float64(s.TotalTransactions)
	}
	if s.CompletedTransactions > 0 {
		s.AveragePayout = s.TotalAmountSent / float64(s.CompletedTransactions)
	}

	return s, nil
}

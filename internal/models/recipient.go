package models

import "time"

// Recipient statuses. partial is terminal: at least one token payout
// succeeded and at least one failed.
const (
	RecipientPending    = "pending"
	RecipientProcessing = "processing"
	RecipientCompleted  = "completed"
	RecipientPartial    = "partial"
	RecipientFailed     = "failed"
)

// Recipient is one destination address within a campaign
type Recipient struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	WalletAddress string     `json:"wallet_address"`
	Status        string     `json:"status"`
	AmountSent    float64    `json:"amount_sent"` // last successful payout, for display
	ErrorMessage  string     `json:"error_message,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RecipientFilter for filtering recipients within a campaign
type RecipientFilter struct {
	CampaignID string
	Status     string
	Limit      int
	Offset     int
}

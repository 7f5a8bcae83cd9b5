package models

import "time"

// Transaction statuses for a single (recipient, token) unit of work.
const (
	TxPending    = "pending"
	TxProcessing = "processing"
	TxCompleted  = "completed"
	TxFailed     = "failed"
)

// Transaction records one attempted payment for a (recipient, token) pair.
// The pair is unique per campaign and acts as the idempotency key that makes
// resumption safe: a completed row is never re-sent.
type Transaction struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaign_id"`
	RecipientID  string     `json:"recipient_id"`
	TokenID      string     `json:"token_id"`
	Amount       float64    `json:"amount"`
	FeeXRP       float64    `json:"fee_xrp"`
	Status       string     `json:"status"`
	TxHash       string     `json:"tx_hash,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TransactionFilter for filtering transactions
type TransactionFilter struct {
	CampaignID  string
	RecipientID string
	Status      string
	Limit       int
	Offset      int
}

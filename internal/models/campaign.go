package models

import "time"

// Campaign statuses. A campaign is created as pending, driven by the
// execution engine through running, and ends in paused, completed or failed.
const (
	CampaignPending   = "pending"
	CampaignRunning   = "running"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
	CampaignFailed    = "failed"
)

// MinIntervalSeconds is the floor for the pacing interval between payments.
const MinIntervalSeconds = 5

// Campaign represents a batch token distribution job
type Campaign struct {
	ID              string `json:"id"`
	WalletAddress   string `json:"wallet_address"`
	Name            string `json:"name"`
	IntervalSeconds int    `json:"interval_seconds"`
	Status          string `json:"status"`

	// Snapshot totals, fixed at creation:
	// TotalTransactions == TotalRecipients * number of token configs.
	TotalRecipients   int `json:"total_recipients"`
	TotalTransactions int `json:"total_transactions"`

	// Aggregates recomputed from persisted rows, never trusted in memory.
	CompletedRecipients   int     `json:"completed_recipients"`
	FailedRecipients      int     `json:"failed_recipients"`
	CompletedTransactions int     `json:"completed_transactions"`
	FailedTransactions    int     `json:"failed_transactions"`
	TotalFeesPaid         float64 `json:"total_fees_paid"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	PausedAt    *time.Time `json:"paused_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CampaignListFilter for filtering campaigns
type CampaignListFilter struct {
	WalletAddress string
	Status        string
	Limit         int
	Offset        int
}

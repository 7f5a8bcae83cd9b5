package models

import "time"

// Log entry severities
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogWarning = "warning"
	LogError   = "error"
)

// LogEntry is one append-only audit event for a campaign. Entries are never
// mutated; the UI activity feed and postmortems read them in time order.
type LogEntry struct {
	ID         int64     `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"` // optional JSON payload, e.g. {"tx_hash": ...}
	CreatedAt  time.Time `json:"created_at"`
}

// LogFilter for filtering log entries
type LogFilter struct {
	CampaignID string
	Type       string
	Limit      int
	Offset     int
}

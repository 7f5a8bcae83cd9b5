package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/quayside/airdropd/internal/models"
)

// LogRepository is the append-only audit log. Entries are written for every
// state transition and per-unit outcome and are never mutated.
type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append writes one log entry. details may be nil.
func (r *LogRepository) Append(campaignID, logType, message string, details map[string]any) error {
	detailsJSON := ""
	if len(details) > 0 {
		data, err := json.Marshal(details)
		if err == nil {
			detailsJSON = string(data)
		}
	}

	_, err := r.db.Exec(`
		INSERT INTO logs (campaign_id, type, message, details, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		campaignID, logType, message, detailsJSON, time.Now(),
	)
	return err
}

func (r *LogRepository) Info(campaignID, message string, details map[string]any) error {
	return r.Append(campaignID, models.LogInfo, message, details)
}

func (r *LogRepository) Success(campaignID, message string, details map[string]any) error {
	return r.Append(campaignID, models.LogSuccess, message, details)
}

func (r *LogRepository) Warning(campaignID, message string, details map[string]any) error {
	return r.Append(campaignID, models.LogWarning, message, details)
}

func (r *LogRepository) Error(campaignID, message string, details map[string]any) error {
	return r.Append(campaignID, models.LogError, message, details)
}

// List returns log entries in timestamp order
func (r *LogRepository) List(filter models.LogFilter) ([]models.LogEntry, int, error) {
	countQuery := "SELECT COUNT(*) FROM logs WHERE campaign_id = ?"
	args := []any{filter.CampaignID}

	if filter.Type != "" {
		countQuery += " AND type = ?"
		args = append(args, filter.Type)
	}

	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, campaign_id, type, message, details, created_at
		FROM logs WHERE campaign_id = ?`

	args = []any{filter.CampaignID}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
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

	entries := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		err := rows.Scan(&e.ID, &e.CampaignID, &e.Type, &e.Message, &e.Details, &e.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}

	return entries, total, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SignalRecord one audited control-plane signal
type SignalRecord struct {
	ID         string    `json:"id"`
	Login      int64     `json:"login"`
	SignalID   string    `json:"signal_id"`
	DeliveryID string    `json:"delivery_id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
	CreatedAt  time.Time `json:"created_at"`
}

// SignalStore signal audit log operations
type SignalStore struct {
	db *sql.DB
}

// Record journals the outcome of one delivered signal
func (s *SignalStore) Record(login int64, signalID, deliveryID, sigType, status, errText string) error {
	_, err := s.db.Exec(`
		INSERT INTO signal_log (id, login, signal_id, delivery_id, type, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), login, signalID, deliveryID, sigType, status, errText)
	if err != nil {
		return fmt.Errorf("failed to record signal: %w", err)
	}
	return nil
}

// Recent returns the latest signal records for one account
func (s *SignalStore) Recent(login int64, limit int) ([]SignalRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, login, signal_id, COALESCE(delivery_id, ''), type, status,
		       COALESCE(error, ''), created_at
		FROM signal_log WHERE login = ?
		ORDER BY created_at DESC LIMIT ?`, login, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(&rec.ID, &rec.Login, &rec.SignalID, &rec.DeliveryID,
			&rec.Type, &rec.Status, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kinds in the trade journal
const (
	KindOpen  = "OPEN"
	KindClose = "CLOSE"
)

// TradeEvent one journaled open or close
type TradeEvent struct {
	ID        string    `json:"id"`
	Login     int64     `json:"login"`
	Kind      string    `json:"kind"`
	Level     int       `json:"level"`
	Side      string    `json:"side"`
	Volume    float64   `json:"volume"`
	Price     float64   `json:"price"`
	Profit    float64   `json:"profit"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Totals realized aggregates for one account, reported in heartbeats
type Totals struct {
	Trades int     `json:"trades"`
	Profit float64 `json:"profit"`
}

// TradeStore trade journal operations
type TradeStore struct {
	db *sql.DB
}

// RecordOpen journals a base-entry or level open
func (t *TradeStore) RecordOpen(login int64, level int, side string, volume, price float64) error {
	_, err := t.db.Exec(`
		INSERT INTO trade_events (id, login, kind, level, side, volume, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), login, KindOpen, level, side, volume, price)
	if err != nil {
		return fmt.Errorf("failed to record open: %w", err)
	}
	return nil
}

// RecordClose journals a level close with its realized price gain
func (t *TradeStore) RecordClose(login int64, level int, side string, volume, price, profit float64, reason string) error {
	_, err := t.db.Exec(`
		INSERT INTO trade_events (id, login, kind, level, side, volume, price, profit, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), login, KindClose, level, side, volume, price, profit, reason)
	if err != nil {
		return fmt.Errorf("failed to record close: %w", err)
	}
	return nil
}

// Totals returns closed-trade count and summed realized profit
func (t *TradeStore) Totals(login int64) (Totals, error) {
	var out Totals
	err := t.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(profit), 0)
		FROM trade_events WHERE login = ? AND kind = ?`,
		login, KindClose).Scan(&out.Trades, &out.Profit)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to query totals: %w", err)
	}
	return out, nil
}

// Recent returns the latest journal entries for one account
func (t *TradeStore) Recent(login int64, limit int) ([]TradeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.db.Query(`
		SELECT id, login, kind, level, side, volume, price,
		       COALESCE(profit, 0), COALESCE(reason, ''), created_at
		FROM trade_events WHERE login = ?
		ORDER BY created_at DESC LIMIT ?`, login, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeEvent
	for rows.Next() {
		var ev TradeEvent
		if err := rows.Scan(&ev.ID, &ev.Login, &ev.Kind, &ev.Level, &ev.Side,
			&ev.Volume, &ev.Price, &ev.Profit, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

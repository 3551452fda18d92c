// Package store provides the SQLite journal for trades and signals.
// All database operations go through this package.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"gridbot/logger"
)

// Store unified journal storage
type Store struct {
	db *sql.DB

	// Sub-stores (lazy initialization)
	trade  *TradeStore
	signal *SignalStore

	mu sync.RWMutex
}

// New opens (or creates) the SQLite journal
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = "data/journal.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// the sqlite driver is not safe for concurrent writers on one file
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize table structure: %w", err)
	}
	logger.Infof("✅ Journal database ready (%s)", dbPath)
	return s, nil
}

// initTables initializes all journal tables
func (s *Store) initTables() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trade_events (
			id TEXT PRIMARY KEY,
			login INTEGER NOT NULL,
			kind TEXT NOT NULL,
			level INTEGER NOT NULL,
			side TEXT NOT NULL,
			volume REAL NOT NULL,
			price REAL NOT NULL,
			profit REAL,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_trade_events_login ON trade_events(login, created_at);
	`); err != nil {
		return fmt.Errorf("failed to create trade_events: %w", err)
	}
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_log (
			id TEXT PRIMARY KEY,
			login INTEGER NOT NULL,
			signal_id TEXT NOT NULL,
			delivery_id TEXT,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_signal_log_login ON signal_log(login, created_at);
	`); err != nil {
		return fmt.Errorf("failed to create signal_log: %w", err)
	}
	return nil
}

// Trade returns the trade journal sub-store
func (s *Store) Trade() *TradeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trade == nil {
		s.trade = &TradeStore{db: s.db}
	}
	return s.trade
}

// Signal returns the signal audit sub-store
func (s *Store) Signal() *SignalStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signal == nil {
		s.signal = &SignalStore{db: s.db}
	}
	return s.signal
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Package config loads process configuration: global settings from the
// environment (.env via godotenv in main), account definitions from
// config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gridbot/engine"
	"gridbot/logger"
)

// Global configuration from the environment
var global *Config

// Config process-level settings
type Config struct {
	APIServerPort int
	JWTSecret     string

	// Mode selects the execution venue: "paper" or "bridge"
	Mode      string
	BridgeURL string

	// Paper-mode quote feed
	FeedSymbol string

	ControlPlaneURL string
	ControlAPIKey   string

	TelegramToken  string
	TelegramChatID int64

	DataDir string
	DBPath  string

	Logger logger.Config
}

// Init loads global configuration from environment variables
func Init() {
	cfg := &Config{
		APIServerPort: 8080,
		Mode:          "paper",
		FeedSymbol:    "PAXGUSDT",
		DataDir:       "data/state",
		DBPath:        "data/journal.db",
	}

	if v := os.Getenv("API_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.APIServerPort = port
		}
	}
	cfg.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "default-jwt-secret-change-in-production"
	}

	if v := strings.ToLower(os.Getenv("VENUE_MODE")); v == "bridge" || v == "paper" {
		cfg.Mode = v
	}
	cfg.BridgeURL = os.Getenv("BRIDGE_URL")
	if cfg.BridgeURL == "" {
		cfg.BridgeURL = "http://127.0.0.1:8787"
	}
	if v := os.Getenv("FEED_SYMBOL"); v != "" {
		cfg.FeedSymbol = v
	}

	cfg.ControlPlaneURL = os.Getenv("CONTROL_PLANE_URL")
	cfg.ControlAPIKey = os.Getenv("CONTROL_API_KEY")

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	cfg.Logger = logger.Config{
		Level: os.Getenv("LOG_LEVEL"),
		File:  os.Getenv("LOG_FILE"),
	}

	global = cfg
}

// Get returns the global configuration
func Get() *Config {
	if global == nil {
		Init()
	}
	return global
}

// Account one configured trading account
type Account struct {
	Login    int64  `json:"login"`
	Password string `json:"password,omitempty"` // may be ENC:v1: sealed
	Server   string `json:"server,omitempty"`

	Params engine.Params `json:"params"`
}

// accountsFile is the config.json document shape
type accountsFile struct {
	Accounts []Account `json:"accounts"`
}

// LoadAccounts reads the account definitions from a JSON file and
// validates every parameter set up front: a bad account file should
// fail startup, not the first tick.
func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc accountsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(doc.Accounts) == 0 {
		return nil, fmt.Errorf("%s defines no accounts", path)
	}

	seen := make(map[int64]bool)
	for i := range doc.Accounts {
		acct := &doc.Accounts[i]
		if acct.Login <= 0 {
			return nil, fmt.Errorf("account %d: login is required", i)
		}
		if seen[acct.Login] {
			return nil, fmt.Errorf("account %d: duplicate login %d", i, acct.Login)
		}
		seen[acct.Login] = true

		acct.Params.SetDefaults()
		if acct.Params.Tag == "" {
			acct.Params.Tag = fmt.Sprintf("grid-%d", acct.Login)
		}
		if err := acct.Params.Validate(); err != nil {
			return nil, fmt.Errorf("account %d: %w", acct.Login, err)
		}
	}
	return doc.Accounts, nil
}

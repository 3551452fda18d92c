package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gridbot/api"
	"gridbot/config"
	"gridbot/control"
	"gridbot/crypto"
	"gridbot/logger"
	"gridbot/market"
	"gridbot/notify"
	"gridbot/runner"
	"gridbot/state"
	"gridbot/store"
	"gridbot/venue"
)

func main() {
	// Load .env file (ignore errors, env vars may come from elsewhere)
	_ = godotenv.Load()

	config.Init()
	cfg := config.Get()

	if err := logger.Init(&cfg.Logger); err != nil {
		logger.Fatalf("❌ Logger init failed: %v", err)
	}
	logger.Info("🚀 Grid bot starting")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	accounts, err := config.LoadAccounts(configPath)
	if err != nil {
		logger.Fatalf("❌ Failed to load accounts: %v", err)
	}
	decryptCredentials(accounts)

	states, err := state.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Fatalf("❌ Failed to open state store: %v", err)
	}
	journal, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("❌ Failed to open journal: %v", err)
	}
	defer journal.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ===== Execution venue =====
	var gate *venue.Gate
	switch cfg.Mode {
	case "bridge":
		gate = venue.NewGate(venue.NewBridge(cfg.BridgeURL))
		logger.Infof("🔌 Bridge venue: %s", cfg.BridgeURL)
	default:
		paper := venue.NewPaper()
		gate = venue.NewGate(paper)
		feedSymbol := accounts[0].Params.Symbol
		feed := market.NewFeed(cfg.FeedSymbol, feedSymbol, paper)
		go feed.Run(ctx)
		logger.Infof("📝 Paper venue (quotes: %s -> %s)", cfg.FeedSymbol, feedSymbol)
	}

	// ===== Optional collaborators =====
	var notifier *notify.Telegram
	if cfg.TelegramToken != "" {
		if notifier, err = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID); err != nil {
			logger.Warnf("⚠️  Telegram disabled: %v", err)
			notifier = nil
		}
	}

	var ctrl *control.Client
	if cfg.ControlPlaneURL != "" && cfg.ControlAPIKey != "" {
		ctrl = control.NewClient(cfg.ControlPlaneURL, cfg.ControlAPIKey)
		if err := ctrl.Authenticate(); err != nil {
			if control.IsCritical(err) {
				logger.Fatalf("❌ Control plane rejected credentials: %v", err)
			}
			logger.Warnf("⚠️  Control plane unreachable, will retry: %v", err)
		}
	} else {
		logger.Info("ℹ️  No control plane configured, running standalone")
	}

	// ===== Runner and API =====
	run := runner.New(gate, states, journal, notifier, ctrl)
	for _, acct := range accounts {
		run.AddAccount(acct)
	}

	adminUser := os.Getenv("ADMIN_USER")
	if adminUser == "" {
		adminUser = "admin"
	}
	adminPass := os.Getenv("ADMIN_PASSWORD")
	if adminPass == "" {
		adminPass = "admin"
		logger.Warn("⚠️  ADMIN_PASSWORD not set, using default")
	}
	server := api.NewServer(run, journal, cfg.JWTSecret, adminUser, adminPass, cfg.APIServerPort)
	go func() {
		if err := server.Start(); err != nil {
			logger.Errorf("❌ API server error: %v", err)
		}
	}()

	notifier.Sendf("🚀 Grid bot started (%d account(s), %s mode)", len(accounts), cfg.Mode)

	run.Run(ctx)

	// ===== Graceful shutdown =====
	logger.Info("🛑 Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("⚠️  API shutdown: %v", err)
	}
	notifier.Sendf("🛑 Grid bot stopped")
	logger.Info("✅ Shutdown complete")
}

// decryptCredentials opens ENC:v1: sealed account passwords in place.
// Plaintext passwords pass through untouched; a sealed password with
// no key configured is fatal (the bridge login would silently fail).
func decryptCredentials(accounts []config.Account) {
	needKey := false
	for _, a := range accounts {
		if crypto.IsEncrypted(a.Password) {
			needKey = true
			break
		}
	}
	if !needKey {
		return
	}
	svc, err := crypto.NewService()
	if err != nil {
		logger.Fatalf("❌ Encrypted credentials present but crypto unavailable: %v", err)
	}
	for i := range accounts {
		if !crypto.IsEncrypted(accounts[i].Password) {
			continue
		}
		plain, err := svc.Decrypt(accounts[i].Password)
		if err != nil {
			logger.Fatalf("❌ Failed to decrypt credentials for account %d: %v", accounts[i].Login, err)
		}
		accounts[i].Password = plain
	}
	logger.Infof("🔐 Account credentials decrypted")
}

package runner

import (
	"gridbot/engine"
	"gridbot/logger"
	"gridbot/notify"
	"gridbot/state"
	"gridbot/store"
)

// journalEvents fans engine events out to the SQLite journal and the
// Telegram notifier. Both sinks are optional and must never fail the
// trading loop.
type journalEvents struct {
	journal  *store.Store
	notifier *notify.Telegram
}

func (j *journalEvents) EntryOpened(login int64, dir state.Direction, price, volume float64, signalID string) {
	if j.journal != nil {
		if err := j.journal.Trade().RecordOpen(login, 0, string(dir), volume, price); err != nil {
			logger.Warnf("⚠️  Journal write failed: %v", err)
		}
	}
	j.notifier.Sendf("🚀 <b>%s entry</b> account %d @ %.2f (%.2f lots)", dir, login, price, volume)
}

func (j *journalEvents) LevelOpened(login int64, level int, price, volume float64) {
	if j.journal != nil {
		if err := j.journal.Trade().RecordOpen(login, level, "", volume, price); err != nil {
			logger.Warnf("⚠️  Journal write failed: %v", err)
		}
	}
	j.notifier.Sendf("📈 Account %d: level %d opened @ %.2f", login, level, price)
}

func (j *journalEvents) LevelClosed(login int64, level int, reason engine.CloseReason, priceGain, volume float64) {
	if j.journal != nil {
		if err := j.journal.Trade().RecordClose(login, level, "", volume, 0, priceGain, string(reason)); err != nil {
			logger.Warnf("⚠️  Journal write failed: %v", err)
		}
	}
	j.notifier.Sendf("💰 Account %d: level %d closed (%s), gain %.2f", login, level, reason, priceGain)
}

func (j *journalEvents) StopMoved(login int64, stop float64) {
	j.notifier.Sendf("🔒 Account %d: virtual stop -> %.2f", login, stop)
}

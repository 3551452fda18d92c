// Package runner drives the per-account control loops: the grid tick,
// signal polling, heartbeats and config refresh, each on its own
// cadence. One goroutine per account; the venue gate serializes what
// must be serialized.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gridbot/config"
	"gridbot/control"
	"gridbot/engine"
	"gridbot/logger"
	"gridbot/notify"
	"gridbot/state"
	"gridbot/store"
	"gridbot/venue"
)

const (
	tickInterval      = 500 * time.Millisecond
	signalInterval    = 2 * time.Second
	heartbeatInterval = 30 * time.Second
	configInterval    = 60 * time.Second
)

// Account one managed account and its mutable runtime state
type Account struct {
	Login int64

	mu     sync.Mutex
	st     *state.AccountState
	params engine.Params
	paused bool

	closeAll chan engine.CloseReason
}

// Status read-only snapshot for the API
type Status struct {
	Login          int64             `json:"login"`
	Direction      state.Direction   `json:"direction"`
	BaseEntryPrice *float64          `json:"base_entry_price,omitempty"`
	VirtualStop    *float64          `json:"virtual_stop,omitempty"`
	PendingLevels  []int             `json:"pending_levels"`
	Restriction    state.Restriction `json:"restriction"`
	Paused         bool              `json:"paused"`
	Params         engine.Params     `json:"params"`
}

// Runner owns all account loops
type Runner struct {
	engine     *engine.Engine
	dispatcher *engine.Dispatcher
	gate       *venue.Gate
	states     *state.FileStore
	journal    *store.Store
	notifier   *notify.Telegram
	control    *control.Client // nil when running standalone

	mu           sync.RWMutex
	accounts     map[int64]*Account
	controlLogin int64 // account whose loop owns the control-plane cadences

	wg sync.WaitGroup
}

// New wires a runner. journal, notifier and ctrl may be nil.
func New(gate *venue.Gate, states *state.FileStore, journal *store.Store, notifier *notify.Telegram, ctrl *control.Client) *Runner {
	events := &journalEvents{journal: journal, notifier: notifier}
	return &Runner{
		engine:     engine.New(gate, states, events),
		dispatcher: engine.NewDispatcher(gate, states, events),
		gate:       gate,
		states:     states,
		journal:    journal,
		notifier:   notifier,
		control:    ctrl,
		accounts:   make(map[int64]*Account),
	}
}

// AddAccount registers an account, recovering its persisted state
func (r *Runner) AddAccount(cfg config.Account) {
	a := &Account{
		Login:    cfg.Login,
		st:       r.states.Load(cfg.Login),
		params:   cfg.Params,
		closeAll: make(chan engine.CloseReason, 1),
	}
	r.mu.Lock()
	r.accounts[a.Login] = a
	// the control plane speaks to one bot, not one account: its signal
	// queue, heartbeat and config belong to exactly one loop, otherwise
	// the loops race each other for the same signals
	if r.control != nil && r.controlLogin == 0 {
		r.controlLogin = a.Login
	}
	r.mu.Unlock()
	logger.Infof("👤 Account %d registered (%s, spacing %.2f, max %d levels)",
		a.Login, a.params.Symbol, a.params.Spacing, a.params.MaxLevels)
	if r.control != nil && r.controlLogin != a.Login {
		logger.Warnf("⚠️  Control plane is bound to account %d; account %d trades locally only", r.controlLogin, a.Login)
	}
}

// handlesControl reports whether this account's loop owns the
// control-plane cadences
func (r *Runner) handlesControl(login int64) bool {
	if r.control == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controlLogin == login
}

// Statuses returns a snapshot of every account
func (r *Runner) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.accounts))
	for _, a := range r.accounts {
		a.mu.Lock()
		pending := append([]int{}, a.st.PendingLevels...)
		out = append(out, Status{
			Login:          a.Login,
			Direction:      a.st.Direction,
			BaseEntryPrice: a.st.BaseEntryPrice,
			VirtualStop:    a.st.VirtualStop,
			PendingLevels:  pending,
			Restriction:    a.st.Restriction,
			Paused:         a.paused,
			Params:         a.params,
		})
		a.mu.Unlock()
	}
	return out
}

// RequestCloseAll queues an asynchronous close-all for one account; it
// takes priority over the next regular tick
func (r *Runner) RequestCloseAll(login int64) error {
	r.mu.RLock()
	a, ok := r.accounts[login]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown account %d", login)
	}
	select {
	case a.closeAll <- engine.ReasonManual:
	default:
		// one pending close-all is already queued
	}
	return nil
}

// Run starts every account loop and blocks until the context ends
func (r *Runner) Run(ctx context.Context) {
	r.mu.RLock()
	for _, a := range r.accounts {
		r.wg.Add(1)
		go func(a *Account) {
			defer r.wg.Done()
			r.runAccount(ctx, a)
		}(a)
	}
	r.mu.RUnlock()
	r.wg.Wait()
}

// runAccount is one account's control loop
func (r *Runner) runAccount(ctx context.Context, a *Account) {
	alog := logger.ForAccount(a.Login)
	alog.Info("▶️  Account loop started")

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	signals := time.NewTicker(signalInterval)
	defer signals.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	configRefresh := time.NewTicker(configInterval)
	defer configRefresh.Stop()

	for {
		select {
		case <-ctx.Done():
			alog.Info("⏹️  Account loop stopped")
			return

		case reason := <-a.closeAll:
			r.doCloseAll(a, reason)

		case <-tick.C:
			// an async close-all beats the regular tick
			select {
			case reason := <-a.closeAll:
				r.doCloseAll(a, reason)
				continue
			default:
			}
			// a.mu is held across the engine call: the state record is
			// only ever mutated by this loop, the lock exists so API
			// snapshots never see it mid-tick
			a.mu.Lock()
			if !a.paused {
				if err := r.engine.Tick(a.Login, a.st, a.params); err != nil {
					alog.Warnf("⚠️  Tick failed: %v", err)
				}
			}
			a.mu.Unlock()

		case <-signals.C:
			if !r.handlesControl(a.Login) {
				continue
			}
			if stop := r.pollSignals(a); stop {
				alog.Error("❌ Critical control-plane failure, loop halted")
				return
			}

		case <-heartbeat.C:
			if r.handlesControl(a.Login) {
				r.sendHeartbeat(a)
			}

		case <-configRefresh.C:
			if r.handlesControl(a.Login) {
				r.refreshConfig(a)
			}
		}
	}
}

func (r *Runner) doCloseAll(a *Account, reason engine.CloseReason) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := r.dispatcher.CloseAll(a.Login, a.st, a.params, reason); err != nil {
		logger.ForAccount(a.Login).Warnf("⚠️  Close-all failed: %v", err)
	}
}

// pollSignals pulls and executes pending control-plane signals.
// Returns true when a critical failure requires halting this account
// after flattening exposure.
func (r *Runner) pollSignals(a *Account) bool {
	alog := logger.ForAccount(a.Login)
	sigs, err := r.control.GetSignals()
	if err != nil {
		if control.IsCritical(err) {
			// safety first: flatten, then stop
			r.doCloseAll(a, engine.ReasonManual)
			return true
		}
		alog.Debugf("signal poll failed: %v", err)
		if authErr := r.control.Authenticate(); authErr != nil && control.IsCritical(authErr) {
			r.doCloseAll(a, engine.ReasonManual)
			return true
		}
		return false
	}

	for _, sig := range sigs {
		status, errText := control.AckExecuted, ""
		if err := r.applySignal(a, sig); err != nil {
			status, errText = control.AckFailed, err.Error()
			alog.Warnf("⚠️  Signal %s (%s) failed: %v", sig.ID, sig.Type, err)
		} else {
			alog.Infof("📨 Signal %s (%s) executed", sig.ID, sig.Type)
		}
		if err := r.control.AckSignal(sig.DeliveryID, status, errText); err != nil {
			alog.Warnf("⚠️  Signal ack failed: %v", err)
		}
		if r.journal != nil {
			if err := r.journal.Signal().Record(a.Login, sig.ID, sig.DeliveryID, sig.Type, status, errText); err != nil {
				alog.Warnf("⚠️  Journal write failed: %v", err)
			}
		}
	}
	return false
}

func (r *Runner) applySignal(a *Account, sig control.Signal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch sig.Type {
	case control.SignalEntry:
		return r.dispatcher.Entry(a.Login, a.st, a.params, sig.Side, sig.Restriction, sig.ID)
	case control.SignalCloseAll:
		return r.dispatcher.CloseAll(a.Login, a.st, a.params, engine.ReasonCloseSignal)
	case control.SignalPause:
		a.paused = true
		logger.ForAccount(a.Login).Info("⏸️  Paused by control plane")
		return nil
	case control.SignalResume:
		a.paused = false
		logger.ForAccount(a.Login).Info("▶️  Resumed by control plane")
		return nil
	default:
		return fmt.Errorf("unknown signal type %q", sig.Type)
	}
}

func (r *Runner) sendHeartbeat(a *Account) {
	a.mu.Lock()
	st, params, paused := a.st, a.params, a.paused
	a.mu.Unlock()

	hb := control.Heartbeat{
		Status:      "ACTIVE",
		CurrentSide: string(st.Direction),
	}
	if paused {
		hb.Status = "PAUSED"
	} else if st.Idle() {
		hb.Status = "IDLE"
	}

	if positions, err := r.gate.Positions(params.Symbol, params.Tag); err == nil {
		hb.Connected = true
		hb.OpenPositions = len(positions)
		if st.BaseEntryPrice != nil {
			deepest := 0
			for _, pos := range positions {
				if lvl := engine.LevelIndex(pos.OpenPrice, *st.BaseEntryPrice, params.Spacing); lvl > deepest {
					deepest = lvl
				}
			}
			hb.CurrentLevel = deepest
		}
	}
	if r.journal != nil {
		if totals, err := r.journal.Trade().Totals(a.Login); err == nil {
			hb.TotalTrades = totals.Trades
			hb.TotalProfit = totals.Profit
		}
	}

	if err := r.control.SendHeartbeat(hb); err != nil {
		logger.ForAccount(a.Login).Debugf("heartbeat failed: %v", err)
	}
}

// refreshConfig pulls remote parameters and applies only what changed;
// on failure the last known-good parameters stay in force
func (r *Runner) refreshConfig(a *Account) {
	rc, err := r.control.GetConfig()
	if err != nil {
		logger.ForAccount(a.Login).Debugf("config refresh failed, keeping current params: %v", err)
		return
	}
	a.mu.Lock()
	changed := rc.Apply(&a.params)
	a.mu.Unlock()
	if len(changed) > 0 {
		logger.ForAccount(a.Login).Infof("🔧 Config refreshed: %v", changed)
	}
}

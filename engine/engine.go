package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"gridbot/logger"
	"gridbot/state"
	"gridbot/venue"
)

// Params per-account grid parameters, refreshable from the control plane
type Params struct {
	Symbol         string         `json:"symbol"`
	Tag            string         `json:"tag"` // account/strategy identifier on venue orders
	Volume         float64        `json:"volume"`
	Spacing        float64        `json:"spacing"`
	MaxLevels      int            `json:"max_levels"`
	OrdersPerLevel int            `json:"orders_per_level"` // fills per grid level, default 1
	EntryOrders    int            `json:"entry_orders"`     // fills for the base entry, default 1
	Trailing       TrailingConfig `json:"trailing"`
}

// SetDefaults fills in defaults for optional multiplicities
func (p *Params) SetDefaults() {
	if p.OrdersPerLevel <= 0 {
		p.OrdersPerLevel = 1
	}
	if p.EntryOrders <= 0 {
		p.EntryOrders = 1
	}
}

// Validate rejects parameter sets the engine cannot run on
func (p *Params) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if p.Spacing <= 0 {
		return fmt.Errorf("spacing must be positive, got %v", p.Spacing)
	}
	if p.Volume <= 0 {
		return fmt.Errorf("volume must be positive, got %v", p.Volume)
	}
	if p.MaxLevels < 0 {
		return fmt.Errorf("max levels must not be negative, got %d", p.MaxLevels)
	}
	return nil
}

// orderSide maps the trade direction to the venue side that adds
// exposure in that direction
func orderSide(dir state.Direction) venue.Side {
	if dir == state.DirectionShort {
		return venue.SideSell
	}
	return venue.SideBuy
}

// Engine runs one full grid management cycle per account per tick.
// It owns no account state; the runner passes each account's state in
// and the engine persists through the file store.
type Engine struct {
	gate   *venue.Gate
	states *state.FileStore
	events Events
}

// New creates an engine over a gated venue connection
func New(gate *venue.Gate, states *state.FileStore, events Events) *Engine {
	if events == nil {
		events = NopEvents{}
	}
	return &Engine{gate: gate, states: states, events: events}
}

// Tick runs one management cycle for one account.
// Order inside the tick is load-bearing: trailing, reconcile, stop
// check, profit closes, then new opens. A stop-triggered close of the
// base entry must never be reconsidered for reopening in the same tick.
//
// Every venue failure is soft: log, skip, retry next tick.
func (e *Engine) Tick(login int64, st *state.AccountState, p Params) error {
	if st.Idle() || st.BaseEntryPrice == nil {
		return nil
	}
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid grid params: %w", err)
	}
	alog := logger.ForAccount(login)

	q, err := e.gate.Quote(p.Symbol)
	if err != nil {
		alog.Debugf("tick skipped, no quote: %v", err)
		return nil
	}
	closePrice := q.Bid
	if st.Direction == state.DirectionShort {
		closePrice = q.Ask
	}
	entry := *st.BaseEntryPrice

	// 1. trailing stop
	if stop, moved := UpdateTrailingStop(st, p.Trailing, closePrice, q.Spread()); moved {
		alog.Infof("🔒 Virtual stop moved to %.2f (close %.2f)", stop, closePrice)
		e.events.StopMoved(login, stop)
	}

	// 2. reconcile venue truth into levels, scrub pending
	positions, err := e.gate.Positions(p.Symbol, p.Tag)
	if err != nil {
		alog.Debugf("tick skipped, positions unavailable: %v", err)
		return nil
	}
	orders, err := e.gate.PendingOrders(p.Symbol, p.Tag)
	if err != nil {
		alog.Debugf("tick skipped, orders unavailable: %v", err)
		return nil
	}
	snap := Reconcile(positions, orders, st.PendingLevels, entry, p.Spacing)
	if len(snap.CleanedPending) != len(st.PendingLevels) {
		alog.Infof("♻️  Pending levels scrubbed: %v -> %v", st.PendingLevels, snap.CleanedPending)
	}
	st.SetPending(snap.CleanedPending)
	if err := e.states.Save(login, st); err != nil {
		alog.Warnf("⚠️  Failed to persist state: %v", err)
	}

	// 3. virtual stop breach closes the base entry
	if st.BaseEntryActive && StopBreached(st, closePrice) {
		e.closeBase(alog, login, st, snap.Base, closePrice)
	}

	// 4. profit-taking on non-zero levels
	liveCount := snap.LiveCount()
	for _, lvl := range snap.Levels() {
		members := snap.LevelsByIndex[lvl]
		gain := closePrice - members[0].OpenPrice
		if st.Direction == state.DirectionShort {
			gain = members[0].OpenPrice - closePrice
		}
		if gain < p.Spacing-Eps {
			continue
		}
		if e.closeLevel(alog, login, lvl, members, ReasonGridStep, gain) {
			st.RemovePending(lvl)
			liveCount--
		}
	}

	// 5. open new levels on adverse excursion, ascending from the entry
	against := entry - closePrice
	if st.Direction == state.DirectionShort {
		against = closePrice - entry
	}
	effMax := st.Restriction.EffectiveMaxLevels(p.MaxLevels)
	if against >= p.Spacing-Eps && effMax > 0 {
		deepest := LevelForDistance(against, p.Spacing)
		capacity := effMax - liveCount - len(st.PendingLevels)
		maxLvl := deepest
		if effMax < maxLvl {
			maxLvl = effMax
		}
		for lvl := 1; lvl <= maxLvl && capacity > 0; lvl++ {
			if len(snap.LevelsByIndex[lvl]) > 0 || st.HasPending(lvl) {
				continue
			}
			if e.openLevel(alog, login, st, p, lvl) {
				capacity--
			}
		}
	}

	return e.states.Save(login, st)
}

// closeBase closes every member at level 0 after a stop breach
func (e *Engine) closeBase(alog *logrus.Entry, login int64, st *state.AccountState, base []venue.Position, closePrice float64) {
	alog.Infof("🛑 Virtual stop hit at %.2f, closing base entry (%d fills)", closePrice, len(base))
	allClosed := true
	for _, pos := range base {
		if _, err := e.gate.Close(pos.ID); err != nil {
			alog.Warnf("⚠️  Failed to close base fill %s: %v", pos.ID, err)
			allClosed = false
			continue
		}
		gain := closePrice - pos.OpenPrice
		if st.Direction == state.DirectionShort {
			gain = pos.OpenPrice - closePrice
		}
		e.events.LevelClosed(login, 0, ReasonVirtualStop, gain, pos.Volume)
	}
	if allClosed {
		st.BaseEntryActive = false
		st.VirtualStop = nil
	}
}

// closeLevel closes all members of one level; returns true when every
// member closed. Partial failures leave the survivors for next tick.
func (e *Engine) closeLevel(alog *logrus.Entry, login int64, lvl int, members []venue.Position, reason CloseReason, gain float64) bool {
	ok := true
	for _, pos := range members {
		if _, err := e.gate.Close(pos.ID); err != nil {
			alog.Warnf("⚠️  Failed to close level %d member %s: %v", lvl, pos.ID, err)
			ok = false
			continue
		}
		e.events.LevelClosed(login, lvl, reason, gain, pos.Volume)
	}
	if ok {
		alog.Infof("💰 Level %d closed (%s), gain %.2f", lvl, reason, gain)
	}
	return ok
}

// openLevel issues the fills for one new grid level; the level enters
// the pending set only on at least one confirmed acceptance, so a
// failed open leaves no trace and retries naturally next tick
func (e *Engine) openLevel(alog *logrus.Entry, login int64, st *state.AccountState, p Params, lvl int) bool {
	side := orderSide(st.Direction)
	filled := 0
	var lastPrice float64
	for i := 0; i < p.OrdersPerLevel; i++ {
		res, err := e.gate.Open(venue.OpenRequest{
			Symbol:  p.Symbol,
			Side:    side,
			Volume:  p.Volume,
			Tag:     p.Tag,
			Comment: fmt.Sprintf("grid L%d", lvl),
		})
		if err != nil {
			alog.Warnf("⚠️  Failed to open level %d: %v", lvl, err)
			continue
		}
		filled++
		lastPrice = res.FilledPrice
	}
	if filled == 0 {
		return false
	}
	st.AddPending(lvl)
	alog.Infof("📈 Level %d opened: %d fill(s) @ %.2f", lvl, filled, lastPrice)
	e.events.LevelOpened(login, lvl, lastPrice, p.Volume*float64(filled))
	return true
}

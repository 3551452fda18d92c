package engine

import (
	"fmt"

	"gridbot/logger"
	"gridbot/state"
	"gridbot/venue"
)

// Dispatcher applies external ENTRY / CLOSE_ALL signals to an account.
// It shares the engine's gate and persistence but runs outside the
// regular tick: a signal fully resets whatever grid came before it.
type Dispatcher struct {
	gate   *venue.Gate
	states *state.FileStore
	events Events
}

// NewDispatcher creates a signal dispatcher
func NewDispatcher(gate *venue.Gate, states *state.FileStore, events Events) *Dispatcher {
	if events == nil {
		events = NopEvents{}
	}
	return &Dispatcher{gate: gate, states: states, events: events}
}

// Entry activates a new directional trade: reset state, open the base
// entry fill(s), and persist. The base entry becomes active only on at
// least one confirmed fill; total failure leaves the account idle and
// the error is reported back to the signal source.
func (d *Dispatcher) Entry(login int64, st *state.AccountState, p Params, side, restriction, signalID string) error {
	dir, ok := state.ParseDirection(side)
	if !ok {
		return fmt.Errorf("unrecognized side %q", side)
	}
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid grid params: %w", err)
	}
	alog := logger.ForAccount(login)

	// a new signal supersedes any prior exposure
	if !st.Idle() {
		alog.Infof("🔄 New %s signal while active, closing previous trade first", dir)
		if err := d.CloseAll(login, st, p, ReasonCloseSignal); err != nil {
			return fmt.Errorf("failed to flatten before entry: %w", err)
		}
	}

	filled := 0
	var entryPrice float64
	for i := 0; i < p.EntryOrders; i++ {
		res, err := d.gate.Open(venue.OpenRequest{
			Symbol:  p.Symbol,
			Side:    orderSide(dir),
			Volume:  p.Volume,
			Tag:     p.Tag,
			Comment: "base entry",
		})
		if err != nil {
			alog.Warnf("⚠️  Base entry fill %d/%d failed: %v", i+1, p.EntryOrders, err)
			continue
		}
		if filled == 0 {
			entryPrice = res.FilledPrice
		}
		filled++
	}
	if filled == 0 {
		st.Reset()
		if err := d.states.Save(login, st); err != nil {
			alog.Warnf("⚠️  Failed to persist state: %v", err)
		}
		return fmt.Errorf("base entry rejected for %s %s", dir, p.Symbol)
	}

	st.Activate(dir, entryPrice, state.ParseRestriction(restriction), signalID)
	if err := d.states.Save(login, st); err != nil {
		alog.Warnf("⚠️  Failed to persist state: %v", err)
	}
	alog.Infof("🚀 %s entry opened @ %.2f (%d fill(s), restriction %s)", dir, entryPrice, filled, st.Restriction)
	d.events.EntryOpened(login, dir, entryPrice, p.Volume*float64(filled), signalID)
	return nil
}

// maxCloseAllPasses bounds the close loop so a venue that keeps
// rejecting closes cannot spin forever
const maxCloseAllPasses = 20

// CloseAll flattens the account: loop until the venue reports zero
// positions, then reset state. Idempotent on an idle account (zero
// close calls, state already default).
func (d *Dispatcher) CloseAll(login int64, st *state.AccountState, p Params, reason CloseReason) error {
	alog := logger.ForAccount(login)
	entry := 0.0
	if st.BaseEntryPrice != nil {
		entry = *st.BaseEntryPrice
	}

	for pass := 0; pass < maxCloseAllPasses; pass++ {
		positions, err := d.gate.Positions(p.Symbol, p.Tag)
		if err != nil {
			return fmt.Errorf("close-all: positions unavailable: %w", err)
		}
		if len(positions) == 0 {
			st.Reset()
			if err := d.states.Save(login, st); err != nil {
				alog.Warnf("⚠️  Failed to persist state: %v", err)
			}
			if pass > 0 {
				alog.Infof("✅ Close-all complete (%s)", reason)
			}
			return nil
		}
		for _, pos := range positions {
			res, err := d.gate.Close(pos.ID)
			if err != nil {
				alog.Warnf("⚠️  Close-all: failed to close %s: %v", pos.ID, err)
				continue
			}
			lvl := 0
			gain := 0.0
			if entry > 0 && p.Spacing > 0 {
				lvl = LevelIndex(pos.OpenPrice, entry, p.Spacing)
				gain = res.FilledPrice - pos.OpenPrice
				if pos.Side == venue.SideSell {
					gain = pos.OpenPrice - res.FilledPrice
				}
			}
			d.events.LevelClosed(login, lvl, reason, gain, pos.Volume)
		}
	}
	return fmt.Errorf("close-all: positions still open after %d passes", maxCloseAllPasses)
}

// Package state holds the durable per-account trading state.
// All mutation goes through the owning account loop; this package only
// defines the record and its persistence.
package state

import "time"

// Direction trade direction for the active grid
type Direction string

const (
	DirectionNone  Direction = "NONE"
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// ParseDirection maps an external side string to a Direction.
// Returns DirectionNone and false for anything unrecognized.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "LONG", "BUY":
		return DirectionLong, true
	case "SHORT", "SELL":
		return DirectionShort, true
	default:
		return DirectionNone, false
	}
}

// Restriction caps how many grid levels may be opened for one activation
type Restriction string

const (
	RestrictionNone        Restriction = "NONE"
	RestrictionNoAveraging Restriction = "NO_AVERAGING"
	RestrictionRiskLimited Restriction = "RISK_LIMITED"
)

// ParseRestriction maps a control-plane restriction string, defaulting
// to RestrictionNone for empty or unknown values.
func ParseRestriction(s string) Restriction {
	switch s {
	case string(RestrictionNoAveraging):
		return RestrictionNoAveraging
	case string(RestrictionRiskLimited):
		return RestrictionRiskLimited
	default:
		return RestrictionNone
	}
}

// EffectiveMaxLevels applies the restriction to the configured grid cap
func (r Restriction) EffectiveMaxLevels(configured int) int {
	switch r {
	case RestrictionNoAveraging:
		return 0
	case RestrictionRiskLimited:
		if configured < 1 {
			return configured
		}
		return 1
	default:
		return configured
	}
}

// AccountState is the durable trading state of one account.
// Direction NONE is the idle/terminal state; everything else must be
// empty while idle (see Normalize).
type AccountState struct {
	Direction       Direction   `json:"direction"`
	BaseEntryPrice  *float64    `json:"base_entry_price,omitempty"`
	BaseEntryActive bool        `json:"base_entry_active"`
	VirtualStop     *float64    `json:"virtual_stop,omitempty"`
	PendingLevels   []int       `json:"pending_levels"`
	Restriction     Restriction `json:"restriction"`
	ActiveSignalID  string      `json:"active_signal_id,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewAccountState returns an idle state
func NewAccountState() *AccountState {
	return &AccountState{
		Direction:     DirectionNone,
		PendingLevels: []int{},
		Restriction:   RestrictionNone,
	}
}

// Reset returns the state to idle, clearing everything tied to the
// previous activation
func (s *AccountState) Reset() {
	s.Direction = DirectionNone
	s.BaseEntryPrice = nil
	s.BaseEntryActive = false
	s.VirtualStop = nil
	s.PendingLevels = []int{}
	s.Restriction = RestrictionNone
	s.ActiveSignalID = ""
}

// Activate starts a new directional trade, wiping whatever came before
func (s *AccountState) Activate(dir Direction, entry float64, restriction Restriction, signalID string) {
	s.Reset()
	s.Direction = dir
	s.BaseEntryPrice = &entry
	s.BaseEntryActive = true
	s.Restriction = restriction
	s.ActiveSignalID = signalID
}

// Idle reports whether no directional trade is active
func (s *AccountState) Idle() bool {
	return s.Direction == DirectionNone
}

// HasPending reports whether a level index is in the pending set
func (s *AccountState) HasPending(level int) bool {
	for _, l := range s.PendingLevels {
		if l == level {
			return true
		}
	}
	return false
}

// AddPending records a level whose open order was issued but not yet
// confirmed live. Level 0 is never pending (tracked via BaseEntryActive).
func (s *AccountState) AddPending(level int) {
	if level <= 0 || s.HasPending(level) {
		return
	}
	s.PendingLevels = append(s.PendingLevels, level)
}

// SetPending replaces the pending set wholesale (reconciler output)
func (s *AccountState) SetPending(levels []int) {
	if levels == nil {
		levels = []int{}
	}
	s.PendingLevels = levels
}

// RemovePending drops a level from the pending set if present
func (s *AccountState) RemovePending(level int) {
	out := s.PendingLevels[:0]
	for _, l := range s.PendingLevels {
		if l != level {
			out = append(out, l)
		}
	}
	s.PendingLevels = out
}

// Normalize repairs a loaded state so the idle invariants hold.
// A record that claims a direction but lost its entry price is not
// recoverable and collapses to idle. Returns true when anything changed.
func (s *AccountState) Normalize() bool {
	changed := false
	if s.PendingLevels == nil {
		s.PendingLevels = []int{}
		changed = true
	}
	if s.Restriction == "" {
		s.Restriction = RestrictionNone
		changed = true
	}
	switch s.Direction {
	case DirectionLong, DirectionShort:
		if s.BaseEntryPrice == nil {
			s.Reset()
			return true
		}
	default:
		if s.Direction != DirectionNone {
			s.Reset()
			return true
		}
		if s.BaseEntryPrice != nil || s.VirtualStop != nil || len(s.PendingLevels) > 0 || s.BaseEntryActive || s.ActiveSignalID != "" {
			s.Reset()
			return true
		}
	}
	// pending never holds level 0 or negatives
	clean := s.PendingLevels[:0]
	for _, l := range s.PendingLevels {
		if l > 0 {
			clean = append(clean, l)
		} else {
			changed = true
		}
	}
	s.PendingLevels = clean
	return changed
}

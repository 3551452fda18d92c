package engine

import "gridbot/state"

// TrailingConfig virtual stop parameters, all in price units
type TrailingConfig struct {
	Enabled          bool    `json:"enabled"`
	ActivateDistance float64 `json:"activate_distance"` // profit required before any stop is set
	BackDistance     float64 `json:"back_distance"`     // stop trails this far behind price
	StepDistance     float64 `json:"step_distance"`     // minimum improvement before the stop moves again
	SpreadBuffer     float64 `json:"spread_buffer"`     // extra padding so the spread alone cannot trip the stop
}

// UpdateTrailingStop ratchets the virtual stop on the account state.
// The stop only ever tightens: for LONG it moves up, for SHORT down,
// and only when the candidate improves on the current stop by at least
// StepDistance. Returns the new stop and true when it moved.
//
// The close price is the side the position would close at (bid for
// LONG, ask for SHORT); spread is added to the buffer so a wide market
// does not fake a breach.
func UpdateTrailingStop(st *state.AccountState, cfg TrailingConfig, closePrice, spread float64) (float64, bool) {
	if !cfg.Enabled || !st.BaseEntryActive || st.BaseEntryPrice == nil {
		return 0, false
	}
	entry := *st.BaseEntryPrice
	buffer := cfg.SpreadBuffer + spread

	switch st.Direction {
	case state.DirectionLong:
		if closePrice < entry+cfg.ActivateDistance {
			return 0, false
		}
		candidate := closePrice - cfg.BackDistance - buffer
		if st.VirtualStop != nil && candidate-*st.VirtualStop < cfg.StepDistance-Eps {
			return 0, false
		}
		st.VirtualStop = &candidate
		return candidate, true

	case state.DirectionShort:
		if closePrice > entry-cfg.ActivateDistance {
			return 0, false
		}
		candidate := closePrice + cfg.BackDistance + buffer
		if st.VirtualStop != nil && *st.VirtualStop-candidate < cfg.StepDistance-Eps {
			return 0, false
		}
		st.VirtualStop = &candidate
		return candidate, true
	}
	return 0, false
}

// StopBreached reports whether the close price has crossed the virtual
// stop for the active direction
func StopBreached(st *state.AccountState, closePrice float64) bool {
	if st.VirtualStop == nil {
		return false
	}
	switch st.Direction {
	case state.DirectionLong:
		return closePrice <= *st.VirtualStop
	case state.DirectionShort:
		return closePrice >= *st.VirtualStop
	}
	return false
}

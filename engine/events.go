package engine

import "gridbot/state"

// CloseReason why a position or level was closed
type CloseReason string

const (
	ReasonManual      CloseReason = "MANUAL"
	ReasonCloseSignal CloseReason = "CLOSE_SIGNAL"
	ReasonVirtualStop CloseReason = "VIRTUAL_SL"
	ReasonGridStep    CloseReason = "GRID_STEP"
)

// Events receives engine lifecycle notifications. Implementations fan
// them out to the journal and the notifier; delivery must never block
// or fail the trading loop.
type Events interface {
	EntryOpened(login int64, dir state.Direction, price, volume float64, signalID string)
	LevelOpened(login int64, level int, price, volume float64)
	LevelClosed(login int64, level int, reason CloseReason, priceGain, volume float64)
	StopMoved(login int64, stop float64)
}

// NopEvents discards everything
type NopEvents struct{}

func (NopEvents) EntryOpened(int64, state.Direction, float64, float64, string) {}
func (NopEvents) LevelOpened(int64, int, float64, float64)                     {}
func (NopEvents) LevelClosed(int64, int, CloseReason, float64, float64)        {}
func (NopEvents) StopMoved(int64, float64)                                     {}

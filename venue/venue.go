// Package venue defines the execution-venue boundary: quotes, the live
// position/order book and order routing. Implementations are a real
// terminal bridge and an in-memory paper venue; the engine only ever
// talks to the Venue interface.
package venue

import "time"

// Side order side at the venue
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the closing side for a position
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Quote one bid/ask snapshot
type Quote struct {
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`
}

// Spread returns ask-bid
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Position one live position as reported by the venue
type Position struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Side      Side    `json:"side"`
	OpenPrice float64 `json:"open_price"`
	Volume    float64 `json:"volume"`
	Tag       string  `json:"tag"`
}

// PendingOrder one resting (not yet filled) order
type PendingOrder struct {
	ID        string  `json:"id"`
	OpenPrice float64 `json:"open_price"`
	Tag       string  `json:"tag"`
}

// OpenRequest order placement parameters.
// Tag carries the account/strategy identifier so positions can be
// attributed back during reconciliation.
type OpenRequest struct {
	Symbol  string  `json:"symbol"`
	Side    Side    `json:"side"`
	Volume  float64 `json:"volume"`
	Tag     string  `json:"tag"`
	Comment string  `json:"comment,omitempty"`
}

// OpenResult confirmed fill
type OpenResult struct {
	ID          string  `json:"id"`
	FilledPrice float64 `json:"filled_price"`
}

// CloseResult confirmed close fill
type CloseResult struct {
	FilledPrice float64 `json:"filled_price"`
}

// Venue is the execution-venue capability the engine consumes.
// Every call may fail transiently; callers treat any error as
// "no state change, retry next tick".
type Venue interface {
	// Quote returns the current bid/ask for a symbol
	Quote(symbol string) (Quote, error)

	// Positions lists live positions for the symbol carrying the tag
	Positions(symbol, tag string) ([]Position, error)

	// PendingOrders lists resting orders for the symbol carrying the tag
	PendingOrders(symbol, tag string) ([]PendingOrder, error)

	// Open places a market order and returns the confirmed fill
	Open(req OpenRequest) (OpenResult, error)

	// Close closes a position by ticket
	Close(id string) (CloseResult, error)
}

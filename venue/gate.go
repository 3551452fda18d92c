package venue

import (
	"fmt"
	"sync"
	"time"

	"gridbot/logger"
)

const (
	defaultQuoteAttempts = 30
	defaultQuoteDelay    = 500 * time.Millisecond
)

// Gate serializes all access to one venue connection. The underlying
// terminal link is not safe for concurrent use, so every account loop
// sharing a connection must share the same Gate instance.
//
// The gate is an owned handle, not a package singleton, so tests can
// build one around a fake venue.
type Gate struct {
	venue Venue
	mu    sync.Mutex

	quoteAttempts int
	quoteDelay    time.Duration
}

// NewGate wraps a venue with the exclusive-access gate
func NewGate(v Venue) *Gate {
	return &Gate{
		venue:         v,
		quoteAttempts: defaultQuoteAttempts,
		quoteDelay:    defaultQuoteDelay,
	}
}

// SetQuoteRetry overrides the quote retry policy (mainly for tests)
func (g *Gate) SetQuoteRetry(attempts int, delay time.Duration) {
	if attempts > 0 {
		g.quoteAttempts = attempts
	}
	g.quoteDelay = delay
}

// Quote fetches a quote with bounded retries. This is the only call
// allowed to block-and-sleep inside the exclusive region; everything
// else is a single round-trip.
func (g *Gate) Quote(symbol string) (Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= g.quoteAttempts; attempt++ {
		q, err := g.venue.Quote(symbol)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if attempt < g.quoteAttempts {
			time.Sleep(g.quoteDelay)
		}
	}
	logger.Warnf("⚠️  Quote for %s unavailable after %d attempts: %v", symbol, g.quoteAttempts, lastErr)
	return Quote{}, fmt.Errorf("quote unavailable for %s: %w", symbol, lastErr)
}

// Positions lists live tagged positions
func (g *Gate) Positions(symbol, tag string) ([]Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.venue.Positions(symbol, tag)
}

// PendingOrders lists resting tagged orders
func (g *Gate) PendingOrders(symbol, tag string) ([]PendingOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.venue.PendingOrders(symbol, tag)
}

// Open places an order
func (g *Gate) Open(req OpenRequest) (OpenResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.venue.Open(req)
}

// Close closes a position by ticket
func (g *Gate) Close(id string) (CloseResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.venue.Close(id)
}

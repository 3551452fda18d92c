package venue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridbot/logger"
)

// Paper is an in-memory venue for simulated trading. It implements the
// same Venue contract as the real bridge so the engine runs unchanged;
// only the bookkeeping is local. Quotes are pushed in by an external
// feed via SetQuote.
type Paper struct {
	mu        sync.Mutex
	quotes    map[string]Quote
	positions map[string]Position // by ticket
	opened    map[string]time.Time
}

// NewPaper creates an empty paper venue
func NewPaper() *Paper {
	return &Paper{
		quotes:    make(map[string]Quote),
		positions: make(map[string]Position),
		opened:    make(map[string]time.Time),
	}
}

// SetQuote publishes the latest bid/ask for a symbol
func (p *Paper) SetQuote(symbol string, q Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q.Time.IsZero() {
		q.Time = time.Now()
	}
	p.quotes[symbol] = q
}

// Quote returns the last published quote
func (p *Paper) Quote(symbol string) (Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("no quote yet for %s", symbol)
	}
	return q, nil
}

// Positions lists open simulated positions carrying the tag,
// oldest first so level membership ordering is stable
func (p *Paper) Positions(symbol, tag string) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Position
	for _, pos := range p.positions {
		if pos.Tag == tag && pos.Symbol == symbol {
			out = append(out, pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return p.opened[out[i].ID].Before(p.opened[out[j].ID])
	})
	return out, nil
}

// PendingOrders always returns nil: paper fills are immediate, nothing
// ever rests
func (p *Paper) PendingOrders(symbol, tag string) ([]PendingOrder, error) {
	return nil, nil
}

// Open fills immediately at the current ask (buy) or bid (sell)
func (p *Paper) Open(req OpenRequest) (OpenResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, ok := p.quotes[req.Symbol]
	if !ok {
		return OpenResult{}, fmt.Errorf("cannot fill %s order: no quote for %s", req.Side, req.Symbol)
	}
	price := q.Ask
	if req.Side == SideSell {
		price = q.Bid
	}

	pos := Position{
		ID:        uuid.New().String(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		OpenPrice: price,
		Volume:    req.Volume,
		Tag:       req.Tag,
	}
	p.positions[pos.ID] = pos
	p.opened[pos.ID] = time.Now()
	logger.Debugf("[paper] filled %s %.2f %s @ %.2f (ticket %s)", req.Side, req.Volume, req.Symbol, price, pos.ID)
	return OpenResult{ID: pos.ID, FilledPrice: price}, nil
}

// Close removes a simulated position, filling at the closing side of
// the last quote. Without a quote the close fails and the position
// stays live, same as Open: a zero fill price would poison the
// realized-gain bookkeeping downstream.
func (p *Paper) Close(id string) (CloseResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[id]
	if !ok {
		return CloseResult{}, fmt.Errorf("unknown ticket %s", id)
	}
	q, ok := p.quotes[pos.Symbol]
	if !ok {
		return CloseResult{}, fmt.Errorf("cannot close ticket %s: no quote for %s", id, pos.Symbol)
	}
	price := q.Bid
	if pos.Side == SideSell {
		price = q.Ask
	}
	delete(p.positions, id)
	delete(p.opened, id)
	return CloseResult{FilledPrice: price}, nil
}

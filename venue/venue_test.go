package venue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyVenue fails the first N quote calls, then succeeds
type flakyVenue struct {
	Paper
	failures int
	calls    int
}

func (f *flakyVenue) Quote(symbol string) (Quote, error) {
	f.calls++
	if f.calls <= f.failures {
		return Quote{}, errors.New("terminal busy")
	}
	return Quote{Bid: 2650.0, Ask: 2650.3}, nil
}

func TestGateQuoteRetriesThenSucceeds(t *testing.T) {
	fv := &flakyVenue{failures: 3}
	g := NewGate(fv)
	g.SetQuoteRetry(5, 0)

	q, err := g.Quote("XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 2650.0, q.Bid)
	assert.Equal(t, 4, fv.calls)
}

func TestGateQuoteGivesUpAfterBoundedAttempts(t *testing.T) {
	fv := &flakyVenue{failures: 100}
	g := NewGate(fv)
	g.SetQuoteRetry(3, 0)

	_, err := g.Quote("XAUUSD")
	assert.Error(t, err)
	assert.Equal(t, 3, fv.calls)
}

func TestPaperOpenFillsAtQuote(t *testing.T) {
	p := NewPaper()
	p.SetQuote("XAUUSD", Quote{Bid: 2650.0, Ask: 2650.3})

	buy, err := p.Open(OpenRequest{Symbol: "XAUUSD", Side: SideBuy, Volume: 0.1, Tag: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, 2650.3, buy.FilledPrice)

	sell, err := p.Open(OpenRequest{Symbol: "XAUUSD", Side: SideSell, Volume: 0.1, Tag: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, 2650.0, sell.FilledPrice)

	positions, err := p.Positions("XAUUSD", "acct-1")
	require.NoError(t, err)
	assert.Len(t, positions, 2)
	// oldest first
	assert.Equal(t, buy.ID, positions[0].ID)
}

func TestPaperOpenWithoutQuoteFails(t *testing.T) {
	p := NewPaper()
	_, err := p.Open(OpenRequest{Symbol: "XAUUSD", Side: SideBuy, Volume: 0.1, Tag: "a"})
	assert.Error(t, err)
}

func TestPaperPositionsFilteredByTag(t *testing.T) {
	p := NewPaper()
	p.SetQuote("XAUUSD", Quote{Bid: 2650.0, Ask: 2650.3})
	_, err := p.Open(OpenRequest{Symbol: "XAUUSD", Side: SideBuy, Volume: 0.1, Tag: "acct-1"})
	require.NoError(t, err)
	_, err = p.Open(OpenRequest{Symbol: "XAUUSD", Side: SideBuy, Volume: 0.1, Tag: "acct-2"})
	require.NoError(t, err)

	positions, err := p.Positions("XAUUSD", "acct-1")
	require.NoError(t, err)
	assert.Len(t, positions, 1)
	assert.Equal(t, "acct-1", positions[0].Tag)
}

func TestPaperCloseFillsOppositeSide(t *testing.T) {
	p := NewPaper()
	p.SetQuote("XAUUSD", Quote{Bid: 2650.0, Ask: 2650.3})
	res, err := p.Open(OpenRequest{Symbol: "XAUUSD", Side: SideBuy, Volume: 0.1, Tag: "a"})
	require.NoError(t, err)

	p.SetQuote("XAUUSD", Quote{Bid: 2655.0, Ask: 2655.3})
	closed, err := p.Close(res.ID)
	require.NoError(t, err)
	assert.Equal(t, 2655.0, closed.FilledPrice)

	positions, _ := p.Positions("XAUUSD", "a")
	assert.Empty(t, positions)

	_, err = p.Close(res.ID)
	assert.Error(t, err, "double close must fail")
}

func TestPaperCloseWithoutQuoteFailsAndKeepsPosition(t *testing.T) {
	p := NewPaper()
	// position exists but its symbol never received a quote
	p.positions["t1"] = Position{ID: "t1", Symbol: "XAGUSD", Side: SideBuy, OpenPrice: 30.0, Volume: 0.1, Tag: "a"}

	_, err := p.Close("t1")
	assert.Error(t, err)
	_, stillThere := p.positions["t1"]
	assert.True(t, stillThere, "failed close must leave the position live")
}

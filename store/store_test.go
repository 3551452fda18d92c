package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTradeTotals(t *testing.T) {
	s := newTestStore(t)
	trade := s.Trade()

	require.NoError(t, trade.RecordOpen(101, 0, "BUY", 0.1, 2650.0))
	require.NoError(t, trade.RecordClose(101, 1, "BUY", 0.1, 2650.0, 1.0, "GRID_STEP"))
	require.NoError(t, trade.RecordClose(101, 2, "BUY", 0.1, 2649.0, 1.2, "GRID_STEP"))
	require.NoError(t, trade.RecordClose(202, 1, "SELL", 0.1, 2651.0, 0.5, "MANUAL"))

	totals, err := trade.Totals(101)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Trades)
	assert.InDelta(t, 2.2, totals.Profit, 1e-9)

	empty, err := trade.Totals(999)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Trades)
	assert.Equal(t, 0.0, empty.Profit)
}

func TestTradeRecent(t *testing.T) {
	s := newTestStore(t)
	trade := s.Trade()
	require.NoError(t, trade.RecordOpen(101, 0, "BUY", 0.1, 2650.0))
	require.NoError(t, trade.RecordClose(101, 0, "BUY", 0.1, 2655.0, 5.0, "VIRTUAL_SL"))

	events, err := trade.Recent(101, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, int64(101), ev.Login)
	}
}

func TestSignalAuditLog(t *testing.T) {
	s := newTestStore(t)
	sig := s.Signal()
	require.NoError(t, sig.Record(101, "s1", "d1", "ENTRY", "EXECUTED", ""))
	require.NoError(t, sig.Record(101, "s2", "d2", "CLOSE_ALL", "FAILED", "venue down"))

	recs, err := sig.Recent(101, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	byID := map[string]SignalRecord{}
	for _, r := range recs {
		byID[r.SignalID] = r
	}
	assert.Equal(t, "EXECUTED", byID["s1"].Status)
	assert.Equal(t, "venue down", byID["s2"].Error)
}

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot/state"
	"gridbot/venue"
)

func newTestDispatcher(t *testing.T, fv *fakeVenue) (*Dispatcher, *state.FileStore) {
	t.Helper()
	states, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)
	gate := venue.NewGate(fv)
	gate.SetQuoteRetry(1, 0)
	return NewDispatcher(gate, states, nil), states
}

func TestEntryRejectsUnknownSide(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeVenue{})
	st := state.NewAccountState()
	err := d.Entry(1, st, testParams(), "SIDEWAYS", "", "sig-1")
	assert.Error(t, err)
	assert.True(t, st.Idle())
}

func TestEntryActivatesOnConfirmedFill(t *testing.T) {
	fv := &fakeVenue{}
	fv.setQuote(2650.0, 2650.3)
	d, states := newTestDispatcher(t, fv)
	st := state.NewAccountState()

	require.NoError(t, d.Entry(1, st, testParams(), "LONG", "RISK_LIMITED", "sig-1"))
	assert.Equal(t, state.DirectionLong, st.Direction)
	assert.Equal(t, 2650.3, *st.BaseEntryPrice)
	assert.True(t, st.BaseEntryActive)
	assert.Equal(t, state.RestrictionRiskLimited, st.Restriction)
	assert.Equal(t, "sig-1", st.ActiveSignalID)

	loaded := states.Load(1)
	assert.Equal(t, state.DirectionLong, loaded.Direction)
}

func TestEntryFailureLeavesAccountIdle(t *testing.T) {
	fv := &fakeVenue{openErr: errors.New("market closed")}
	fv.setQuote(2650.0, 2650.3)
	d, _ := newTestDispatcher(t, fv)
	st := state.NewAccountState()

	err := d.Entry(1, st, testParams(), "LONG", "", "sig-1")
	assert.Error(t, err)
	assert.True(t, st.Idle())
	assert.Nil(t, st.BaseEntryPrice)
}

func TestEntryWhileActiveFlattensFirst(t *testing.T) {
	fv := &fakeVenue{}
	fv.setQuote(2650.0, 2650.3)
	fv.addPosition("old-base", venue.SideBuy, 2640.0)
	d, _ := newTestDispatcher(t, fv)

	st := state.NewAccountState()
	st.Activate(state.DirectionLong, 2640, state.RestrictionNone, "old-sig")

	require.NoError(t, d.Entry(1, st, testParams(), "SHORT", "", "new-sig"))
	assert.Contains(t, fv.closes, "old-base")
	assert.Equal(t, state.DirectionShort, st.Direction)
	assert.Equal(t, "new-sig", st.ActiveSignalID)
}

func TestCloseAllOnIdleAccountIsNoOp(t *testing.T) {
	fv := &fakeVenue{}
	d, _ := newTestDispatcher(t, fv)
	st := state.NewAccountState()

	require.NoError(t, d.CloseAll(1, st, testParams(), ReasonManual))
	assert.Empty(t, fv.closes, "idle close-all must issue zero close calls")
	assert.True(t, st.Idle())
}

func TestCloseAllFlattensEverythingAndResets(t *testing.T) {
	fv := &fakeVenue{}
	fv.setQuote(2648.0, 2648.3)
	fv.addPosition("base", venue.SideBuy, 2650.0)
	fv.addPosition("l1", venue.SideBuy, 2649.0)
	fv.addPosition("l3", venue.SideBuy, 2647.0)
	d, states := newTestDispatcher(t, fv)

	st := state.NewAccountState()
	st.Activate(state.DirectionLong, 2650, state.RestrictionNone, "sig")
	st.AddPending(1)
	st.AddPending(3)

	require.NoError(t, d.CloseAll(1, st, testParams(), ReasonCloseSignal))
	assert.Len(t, fv.closes, 3)
	assert.True(t, st.Idle())
	assert.Empty(t, st.PendingLevels)

	loaded := states.Load(1)
	assert.True(t, loaded.Idle())
}

func TestCloseAllRetriesStubbornPositions(t *testing.T) {
	fv := &fakeVenue{closeErr: errors.New("requote")}
	fv.addPosition("base", venue.SideBuy, 2650.0)
	d, _ := newTestDispatcher(t, fv)

	st := state.NewAccountState()
	st.Activate(state.DirectionLong, 2650, state.RestrictionNone, "sig")

	err := d.CloseAll(1, st, testParams(), ReasonManual)
	assert.Error(t, err, "bounded close loop must give up, not spin")
	assert.False(t, st.Idle(), "state stays active while exposure remains")
}

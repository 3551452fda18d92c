package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestrictionEffectiveMaxLevels(t *testing.T) {
	tests := []struct {
		name        string
		restriction Restriction
		configured  int
		want        int
	}{
		{"none uses configured", RestrictionNone, 4, 4},
		{"no averaging forces zero", RestrictionNoAveraging, 4, 0},
		{"risk limited caps at one", RestrictionRiskLimited, 4, 1},
		{"risk limited keeps zero", RestrictionRiskLimited, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.restriction.EffectiveMaxLevels(tt.configured); got != tt.want {
				t.Errorf("EffectiveMaxLevels(%d) = %d, want %d", tt.configured, got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"LONG", DirectionLong, true},
		{"BUY", DirectionLong, true},
		{"SHORT", DirectionShort, true},
		{"SELL", DirectionShort, true},
		{"SIDEWAYS", DirectionNone, false},
		{"", DirectionNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseDirection(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDirection(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeIdleInvariant(t *testing.T) {
	entry := 2650.0
	st := &AccountState{
		Direction:      DirectionNone,
		BaseEntryPrice: &entry,
		PendingLevels:  []int{1, 2},
	}
	assert.True(t, st.Normalize())
	assert.Nil(t, st.BaseEntryPrice)
	assert.Empty(t, st.PendingLevels)
	assert.Equal(t, DirectionNone, st.Direction)
}

func TestNormalizeActiveWithoutEntryCollapses(t *testing.T) {
	st := &AccountState{Direction: DirectionLong, PendingLevels: []int{1}}
	assert.True(t, st.Normalize())
	assert.True(t, st.Idle())
}

func TestNormalizeStripsLevelZeroFromPending(t *testing.T) {
	entry := 2650.0
	st := &AccountState{
		Direction:      DirectionLong,
		BaseEntryPrice: &entry,
		PendingLevels:  []int{0, 1, 3},
	}
	st.Normalize()
	assert.Equal(t, []int{1, 3}, st.PendingLevels)
}

func TestPendingSetSemantics(t *testing.T) {
	st := NewAccountState()
	st.AddPending(2)
	st.AddPending(2)
	st.AddPending(0)
	assert.Equal(t, []int{2}, st.PendingLevels)
	st.RemovePending(2)
	assert.Empty(t, st.PendingLevels)
}

func TestActivateResetsPriorState(t *testing.T) {
	st := NewAccountState()
	st.Activate(DirectionLong, 2650, RestrictionNone, "sig-1")
	st.AddPending(1)
	stop := 2654.0
	st.VirtualStop = &stop

	st.Activate(DirectionShort, 1900, RestrictionRiskLimited, "sig-2")
	assert.Equal(t, DirectionShort, st.Direction)
	assert.Equal(t, 1900.0, *st.BaseEntryPrice)
	assert.Nil(t, st.VirtualStop)
	assert.Empty(t, st.PendingLevels)
	assert.Equal(t, "sig-2", st.ActiveSignalID)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	st := NewAccountState()
	st.Activate(DirectionLong, 2650.5, RestrictionNone, "sig-9")
	st.AddPending(1)
	st.AddPending(3)
	require.NoError(t, fs.Save(101, st))

	got := fs.Load(101)
	assert.Equal(t, DirectionLong, got.Direction)
	assert.Equal(t, 2650.5, *got.BaseEntryPrice)
	assert.Equal(t, []int{1, 3}, got.PendingLevels)
	assert.Equal(t, "sig-9", got.ActiveSignalID)
}

func TestFileStoreMissingFileIsIdle(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	st := fs.Load(555)
	assert.True(t, st.Idle())
}

func TestFileStoreCorruptFileResetsToIdle(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "account_7.json"), []byte("{not json"), 0o644))

	st := fs.Load(7)
	assert.True(t, st.Idle())
	assert.Empty(t, st.PendingLevels)
}

func TestFileStoreLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Save(1, NewAccountState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "account_1.json", entries[0].Name())
}

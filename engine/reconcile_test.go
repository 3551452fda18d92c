package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gridbot/venue"
)

func pos(id string, openPrice float64) venue.Position {
	return venue.Position{ID: id, Symbol: "XAUUSD", Side: venue.SideBuy, OpenPrice: openPrice, Volume: 0.1, Tag: "a"}
}

func TestReconcileGroupsByLevel(t *testing.T) {
	positions := []venue.Position{
		pos("base", 2650.0),
		pos("l1", 2649.0),
		pos("l2a", 2648.0),
		pos("l2b", 2648.1), // same level as l2a after rounding
	}
	snap := Reconcile(positions, nil, nil, 2650.0, 1.0)

	assert.Len(t, snap.Base, 1)
	assert.Equal(t, "base", snap.Base[0].ID)
	assert.Len(t, snap.LevelsByIndex[1], 1)
	assert.Len(t, snap.LevelsByIndex[2], 2)
	assert.Equal(t, []int{1, 2}, snap.Levels())
	assert.Equal(t, 2, snap.DeepestLevel())
}

func TestReconcilePendingLifecycle(t *testing.T) {
	positions := []venue.Position{pos("l1", 2649.0)}
	orders := []venue.PendingOrder{{ID: "o3", OpenPrice: 2647.0, Tag: "a"}}

	// level 1 filled (graduates out of pending), level 3 still resting
	// (stays), level 2 backed by nothing (scrubbed)
	snap := Reconcile(positions, orders, []int{1, 2, 3}, 2650.0, 1.0)
	assert.Equal(t, []int{3}, snap.CleanedPending)
	assert.Len(t, snap.LevelsByIndex[1], 1)
}

func TestReconcileGraduatesFilledPendingLevel(t *testing.T) {
	// once the order for a pending level fills, the level must be
	// tracked as live only, never live and pending at the same time
	positions := []venue.Position{pos("base", 2650.0), pos("l1", 2649.0)}
	snap := Reconcile(positions, nil, []int{1}, 2650.0, 1.0)
	assert.Empty(t, snap.CleanedPending)
	assert.Len(t, snap.LevelsByIndex[1], 1)
}

func TestReconcileIsIdempotent(t *testing.T) {
	positions := []venue.Position{pos("base", 2650.0), pos("l2", 2648.0)}
	orders := []venue.PendingOrder{{ID: "o1", OpenPrice: 2649.0}}
	pending := []int{1, 2, 4}

	first := Reconcile(positions, orders, pending, 2650.0, 1.0)
	second := Reconcile(positions, orders, first.CleanedPending, 2650.0, 1.0)

	assert.Equal(t, []int{1}, first.CleanedPending)
	assert.Equal(t, first.CleanedPending, second.CleanedPending)
	assert.Equal(t, first.LevelsByIndex, second.LevelsByIndex)
}

func TestReconcileEmptyVenueDropsAllPending(t *testing.T) {
	snap := Reconcile(nil, nil, []int{1, 2, 3}, 2650.0, 1.0)
	assert.Empty(t, snap.CleanedPending)
	assert.Empty(t, snap.LevelsByIndex)
	assert.Empty(t, snap.Base)
}

func TestReconcileIgnoresLevelZeroPending(t *testing.T) {
	positions := []venue.Position{pos("base", 2650.0)}
	snap := Reconcile(positions, nil, []int{0}, 2650.0, 1.0)
	assert.Empty(t, snap.CleanedPending)
}

package engine

import (
	"sort"

	"gridbot/venue"
)

// Snapshot is the reconciled view of one account's grid for one tick.
// It is recomputed from venue truth every tick and never persisted.
type Snapshot struct {
	// Base holds the live members of level 0 (the base entry)
	Base []venue.Position

	// LevelsByIndex maps non-zero level index to its live members,
	// in venue order
	LevelsByIndex map[int][]venue.Position

	// CleanedPending is the subset of the persisted pending set still
	// corroborated by a live position or a resting order at that index
	CleanedPending []int
}

// LiveCount returns how many non-zero levels have at least one member
func (s *Snapshot) LiveCount() int {
	return len(s.LevelsByIndex)
}

// Levels returns the occupied non-zero level indexes in ascending order
func (s *Snapshot) Levels() []int {
	out := make([]int, 0, len(s.LevelsByIndex))
	for idx := range s.LevelsByIndex {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// DeepestLevel returns the highest occupied level index, 0 when only
// the base entry is live
func (s *Snapshot) DeepestLevel() int {
	deepest := 0
	for idx := range s.LevelsByIndex {
		if idx > deepest {
			deepest = idx
		}
	}
	return deepest
}

// Reconcile maps the venue's authoritative positions and resting orders
// onto grid levels and scrubs the pending set. Pending means "order
// issued, not yet confirmed live": a level whose fill now shows up as a
// live position graduates out of the set, a level still backed by a
// resting order stays, and a level with neither is dropped (the order
// failed or expired, and the level is free to retry). Without the
// graduation a filled level would count against capacity twice, once
// as live and once as pending.
//
// baseEntry unset is handled by the caller (the whole tick is skipped).
func Reconcile(positions []venue.Position, orders []venue.PendingOrder, pending []int, baseEntry, spacing float64) Snapshot {
	snap := Snapshot{
		LevelsByIndex:  make(map[int][]venue.Position),
		CleanedPending: []int{},
	}

	for _, pos := range positions {
		idx := LevelIndex(pos.OpenPrice, baseEntry, spacing)
		if idx == 0 {
			snap.Base = append(snap.Base, pos)
			continue
		}
		snap.LevelsByIndex[idx] = append(snap.LevelsByIndex[idx], pos)
	}

	orderLevels := make(map[int]bool, len(orders))
	for _, o := range orders {
		orderLevels[LevelIndex(o.OpenPrice, baseEntry, spacing)] = true
	}

	for _, lvl := range pending {
		if lvl <= 0 {
			continue
		}
		if len(snap.LevelsByIndex[lvl]) > 0 {
			// confirmed live, no longer pending
			continue
		}
		if orderLevels[lvl] {
			snap.CleanedPending = append(snap.CleanedPending, lvl)
		}
	}
	sort.Ints(snap.CleanedPending)

	return snap
}

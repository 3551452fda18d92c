// Package engine implements grid level management: reconciling venue
// truth into grid levels, ratcheting the virtual stop, and the per-tick
// open/close cycle.
package engine

import "math"

// Eps absorbs floating-point noise at level and step boundaries.
// Every distance comparison in this package goes through the same
// tolerance so the rounding of level indexes, profit checks and stop
// steps can never disagree with each other.
const Eps = 1e-6

// LevelForDistance converts an absolute price distance from the base
// entry into a grid level index: nearest integer, ties at exactly
// half-spacing rounding up. This is the single canonical rounding used
// everywhere a level index is derived.
func LevelForDistance(dist, spacing float64) int {
	if spacing <= 0 || dist < 0 {
		return 0
	}
	return int(math.Floor((dist + spacing/2) / spacing))
}

// LevelIndex derives the grid level of a position from its open price
func LevelIndex(openPrice, baseEntry, spacing float64) int {
	return LevelForDistance(math.Abs(openPrice-baseEntry), spacing)
}

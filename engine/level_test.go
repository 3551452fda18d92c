package engine

import "testing"

func TestLevelIndexExactMultiples(t *testing.T) {
	// a position opened exactly k*spacing from entry lands on level k
	for k := 0; k <= 20; k++ {
		got := LevelIndex(2650.0+float64(k)*1.0, 2650.0, 1.0)
		if got != k {
			t.Errorf("level at entry+%d*spacing = %d, want %d", k, got, k)
		}
		got = LevelIndex(2650.0-float64(k)*1.0, 2650.0, 1.0)
		if got != k {
			t.Errorf("level at entry-%d*spacing = %d, want %d", k, got, k)
		}
	}
}

func TestLevelIndexHalfUpTieBreak(t *testing.T) {
	// the tie at exactly half-spacing rounds up
	tests := []struct {
		dist float64
		want int
	}{
		{0.0, 0},
		{0.49, 0},
		{0.5, 1}, // tie rounds up
		{0.51, 1},
		{1.49, 1},
		{1.5, 2},
		{3.4, 3},
		{3.9, 4},
	}
	for _, tt := range tests {
		if got := LevelForDistance(tt.dist, 1.0); got != tt.want {
			t.Errorf("LevelForDistance(%v, 1.0) = %d, want %d", tt.dist, got, tt.want)
		}
	}
}

func TestLevelForDistanceScaledSpacing(t *testing.T) {
	tests := []struct {
		dist    float64
		spacing float64
		want    int
	}{
		{0.0, 2.5, 0},
		{1.24, 2.5, 0},
		{1.25, 2.5, 1},
		{5.0, 2.5, 2},
		{6.24, 2.5, 2},
	}
	for _, tt := range tests {
		if got := LevelForDistance(tt.dist, tt.spacing); got != tt.want {
			t.Errorf("LevelForDistance(%v, %v) = %d, want %d", tt.dist, tt.spacing, got, tt.want)
		}
	}
}

func TestLevelForDistanceDegenerateInputs(t *testing.T) {
	if got := LevelForDistance(5.0, 0); got != 0 {
		t.Errorf("zero spacing must yield level 0, got %d", got)
	}
	if got := LevelForDistance(-1.0, 1.0); got != 0 {
		t.Errorf("negative distance must yield level 0, got %d", got)
	}
}

package escrow

import (
	"math"
	"testing"
)

func TestMilestoneShare(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		percent int64
		want    int64
	}{
		{name: "even split", total: 2000, percent: 50, want: 1000},
		{name: "full release", total: 2000, percent: 100, want: 2000},
		{name: "zero percent", total: 2000, percent: 0, want: 0},
		{name: "truncates down", total: 99, percent: 50, want: 49},
		{name: "small total small percent", total: 3, percent: 33, want: 0},
		{name: "one unit", total: 1, percent: 100, want: 1},
		{name: "uneven thirds", total: 1000, percent: 33, want: 330},
		{name: "max total full percent", total: math.MaxInt64, percent: 100, want: math.MaxInt64},
		{name: "max total half", total: math.MaxInt64, percent: 50, want: math.MaxInt64 / 2},
		{name: "near max no overflow", total: math.MaxInt64 - 1, percent: 99, want: 9131138316486228047},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := milestoneShare(tt.total, tt.percent)
			if got != tt.want {
				t.Errorf("milestoneShare(%d, %d) = %d, want %d", tt.total, tt.percent, got, tt.want)
			}
		})
	}
}

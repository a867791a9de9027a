package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTargetPeriod(t *testing.T) {
	tests := []struct {
		name     string
		explicit uint32
		rng      PeriodRange
		want     uint32
		wantOK   bool
	}{
		{"min below default", 0, PeriodRange{Default: 480, Fundamental: 48, Min: 96, Max: 480}, 96, true},
		{"min equals default", 0, PeriodRange{Default: 480, Fundamental: 480, Min: 480, Max: 480}, 0, false},
		{"min above default", 0, PeriodRange{Default: 240, Min: 480, Max: 960}, 0, false},
		{"explicit inside range", 144, PeriodRange{Default: 480, Fundamental: 48, Min: 96, Max: 480}, 144, true},
		{"explicit below min", 32, PeriodRange{Default: 480, Fundamental: 48, Min: 96, Max: 480}, 32, true},
		{"explicit above max", 4096, PeriodRange{Default: 480, Fundamental: 48, Min: 96, Max: 480}, 4096, true},
		{"explicit without improvement", 128, PeriodRange{Default: 480, Min: 480, Max: 480}, 128, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TargetPeriod(tt.explicit, tt.rng)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			again, okAgain := TargetPeriod(tt.explicit, tt.rng)
			assert.Equal(t, got, again)
			assert.Equal(t, ok, okAgain)
		})
	}
}

func TestPeriodRangeValid(t *testing.T) {
	assert.True(t, PeriodRange{Default: 480, Min: 96, Max: 480}.Valid())
	assert.False(t, PeriodRange{Default: 48, Min: 96, Max: 480}.Valid())
	assert.False(t, PeriodRange{Default: 960, Min: 96, Max: 480}.Valid())
}

func TestFramesToDuration(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, FramesToDuration(480, 48000))
	assert.Equal(t, 2*time.Millisecond, FramesToDuration(96, 48000))
	assert.Zero(t, FramesToDuration(96, 0))
}

package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ivlev/faceless/internal/models"
)

func TestComputeDurations(t *testing.T) {
	tests := []struct {
		name     string
		segments []models.Segment
		audio    float64
		want     []float64
	}{
		{
			name: "nominal",
			segments: []models.Segment{
				{StartTime: 0, EndTime: 8},
				{StartTime: 8, EndTime: 15},
			},
			audio: 20,
			want:  []float64{8, 7},
		},
		{
			name: "inconsistent timings get an equal share",
			segments: []models.Segment{
				{StartTime: 0, EndTime: 6},
				{StartTime: 6, EndTime: 6},
				{StartTime: 12, EndTime: 9},
			},
			audio: 24,
			want:  []float64{6, 8, 8},
		},
		{
			name:     "all zero",
			segments: make([]models.Segment, 4),
			audio:    30,
			want:     []float64{7.5, 7.5, 7.5, 7.5},
		},
		{
			name:     "empty",
			segments: nil,
			audio:    30,
			want:     []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDurations(tt.segments, tt.audio)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d durations, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("duration[%d] = %.3f, want %.3f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// Equal shares never add up to more than the audio.
func TestEqualSplitFitsAudio(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := 1 + r.Intn(12)
		audio := 1 + r.Float64()*120
		got := sum(ComputeDurations(make([]models.Segment, n), audio))
		if got > audio+1e-9 {
			t.Fatalf("n=%d audio=%.3f: total %.6f exceeds audio", n, audio, got)
		}
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

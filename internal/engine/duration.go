package engine

import "github.com/ivlev/faceless/internal/models"

// ComputeDurations returns the on-screen length of every segment: its nominal
// end minus start, or an equal share of totalAudio when that is not positive.
// The result is not normalized to the audio length.
func ComputeDurations(segments []models.Segment, totalAudio float64) []float64 {
	durations := make([]float64, len(segments))
	if len(segments) == 0 {
		return durations
	}

	share := totalAudio / float64(len(segments))
	for i, seg := range segments {
		d := seg.Duration()
		if d <= 0 {
			d = share
		}
		durations[i] = d
	}
	return durations
}

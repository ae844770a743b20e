package engine

import (
	"image"
	"path/filepath"

	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/motion"
)

// Scenario exports the timeline as a motion plan with the camera window at the
// first and last frame of every clip.
func (tl *Timeline) Scenario(title string, width, height, fps int) *director.Scenario {
	sc := &director.Scenario{
		Version: "1.0",
		Title:   title,
		Width:   width,
		Height:  height,
		FPS:     fps,
		Slides:  make([]director.Slide, 0, len(tl.Clips)),
	}

	for _, c := range tl.Clips {
		s := motion.NewSampler(c.Motion.Motion(), c.Params.Width, c.Params.Height, c.Params.Duration)
		sc.Slides = append(sc.Slides, director.Slide{
			ID:        c.Segment.ID,
			Input:     filepath.Base(c.Image),
			Start:     c.Start,
			Duration:  c.Params.Duration,
			Motion:    c.Motion.Name,
			Intensity: c.Motion.Intensity,
			Origin:    c.Motion.Origin,
			Keyframes: []director.Keyframe{
				keyframe(s, 0, "start"),
				keyframe(s, c.Params.Duration, "end"),
			},
		})
	}
	return sc
}

func keyframe(s *motion.Sampler, t float64, focus string) director.Keyframe {
	return director.Keyframe{
		Time:  t,
		Focus: focus,
		Rect:  rectangle(s.Window(t)),
		Zoom:  s.ScaleAt(t),
	}
}

func rectangle(r image.Rectangle) director.Rectangle {
	return director.Rectangle{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Package renderer turns a still image and its camera motion into the raw
// frames of one clip.
package renderer

import (
	"image"
	"math"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/motion"
	"github.com/ivlev/faceless/internal/system"
)

// Clip produces the frames of one segment. Frames are rendered into a single
// reused buffer, so a frame is only valid until the next call to Frame.
type Clip struct {
	params  config.SegmentParams
	sampler *motion.Sampler
	big     *image.RGBA
	dst     *image.RGBA
	count   int
}

// NewClip prepares src for sampling. src should already be normalized to the
// output size; Close must be called to release the buffers.
func NewClip(src image.Image, p config.SegmentParams) *Clip {
	m := motion.Parse(p.Motion, p.Intensity)
	s := motion.NewSampler(m, p.Width, p.Height, p.Duration)

	bw, bh := s.SourceSize()
	big := s.Prepare(system.GetImage(image.Rect(0, 0, bw, bh)), src)

	return &Clip{
		params:  p,
		sampler: s,
		big:     big,
		dst:     system.GetImage(image.Rect(0, 0, p.Width, p.Height)),
		count:   FrameCount(p.Duration, p.FPS),
	}
}

// FrameCount is the number of frames of a clip, at least one.
func FrameCount(duration float64, fps int) int {
	n := int(math.Round(duration * float64(fps)))
	if n < 1 {
		return 1
	}
	return n
}

func (c *Clip) Len() int { return c.count }

func (c *Clip) Size() (int, int) { return c.params.Width, c.params.Height }

func (c *Clip) Sampler() *motion.Sampler { return c.sampler }

// Frame renders frame i with the camera window and fade applied.
func (c *Clip) Frame(i int) *image.RGBA {
	t := float64(i) / float64(c.params.FPS)
	c.sampler.Frame(c.dst, c.big, t)
	motion.ApplyFade(c.dst, motion.FadeFactor(t, c.params.Duration, c.params.FadeDuration))
	return c.dst
}

func (c *Clip) Close() {
	system.PutImage(c.big)
	system.PutImage(c.dst)
	c.big, c.dst = nil, nil
}

package motion

import (
	"image"

	"golang.org/x/image/draw"
)

// headroom is added on top of the intensity when upscaling the source so the
// window never touches the image border.
const headroom = 0.05

// Sampler yields the crop window of a pre-upscaled source for a clip of
// fixed output size and duration.
type Sampler struct {
	motion   Motion
	w, h     int
	duration float64
	bigW     int
	bigH     int
}

func NewSampler(m Motion, w, h int, duration float64) *Sampler {
	m.Intensity = clampIntensity(m.Intensity)
	s := &Sampler{motion: m, w: w, h: h, duration: duration, bigW: w, bigH: h}
	if m.Kind != Static {
		scale := m.Intensity + headroom
		s.bigW = int(float64(w) * scale)
		s.bigH = int(float64(h) * scale)
	}
	return s
}

func (s *Sampler) Motion() Motion { return s.motion }

// SourceSize is the size the source must be upscaled to before sampling.
func (s *Sampler) SourceSize() (int, int) { return s.bigW, s.bigH }

// Progress maps t to [0, 1].
func (s *Sampler) Progress(t float64) float64 {
	if s.duration <= 0 {
		return 0
	}
	return clamp01(t / s.duration)
}

// ScaleAt is the zoom factor at time t; 1 for every kind that does not zoom.
func (s *Sampler) ScaleAt(t float64) float64 {
	p := s.Progress(t)
	i := s.motion.Intensity
	switch s.motion.Kind {
	case ZoomIn:
		return lerp(1, i, p)
	case ZoomOut:
		return lerp(i, 1, p)
	}
	return 1
}

// Window is the crop rectangle, in upscaled source coordinates, at time t.
func (s *Sampler) Window(t float64) image.Rectangle {
	p := s.Progress(t)
	freeX, freeY := s.bigW-s.w, s.bigH-s.h

	switch s.motion.Kind {
	case ZoomIn, ZoomOut:
		cur := s.ScaleAt(t)
		cw := int(float64(s.w) / cur)
		ch := int(float64(s.h) / cur)
		return s.window((s.bigW-cw)/2, (s.bigH-ch)/2, cw, ch)
	case PanLeft:
		return s.window(int(float64(freeX)*(1-p)), freeY/2, s.w, s.h)
	case PanRight:
		return s.window(int(float64(freeX)*p), freeY/2, s.w, s.h)
	case KenBurnsUp:
		return s.window(freeX/2, int(float64(freeY)*(1-p)), s.w, s.h)
	case KenBurnsDown:
		return s.window(freeX/2, int(float64(freeY)*p), s.w, s.h)
	}
	return image.Rect(0, 0, s.w, s.h)
}

func (s *Sampler) window(x, y, cw, ch int) image.Rectangle {
	if cw > s.bigW {
		cw = s.bigW
	}
	if ch > s.bigH {
		ch = s.bigH
	}
	x = clampInt(x, 0, s.bigW-cw)
	y = clampInt(y, 0, s.bigH-ch)
	return image.Rect(x, y, x+cw, y+ch)
}

// Prepare upscales src to SourceSize. The result is drawn into dst when it has
// the right bounds, otherwise a new image is allocated.
func (s *Sampler) Prepare(dst *image.RGBA, src image.Image) *image.RGBA {
	r := image.Rect(0, 0, s.bigW, s.bigH)
	if dst == nil || dst.Rect != r {
		dst = image.NewRGBA(r)
	}
	if src.Bounds().Size() == r.Size() {
		draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, r, src, src.Bounds(), draw.Src, nil)
	return dst
}

// Frame resamples the window at time t of the prepared source into dst.
func (s *Sampler) Frame(dst *image.RGBA, big image.Image, t float64) {
	win := s.Window(t).Add(big.Bounds().Min)
	if win.Size() == dst.Rect.Size() {
		draw.Draw(dst, dst.Rect, big, win.Min, draw.Src)
		return
	}
	draw.ApproxBiLinear.Scale(dst, dst.Rect, big, win, draw.Src, nil)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

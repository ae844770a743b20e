package motion

import "image"

// DefaultFade is the fade to and from black applied at both ends of every clip.
const DefaultFade = 0.3

// FadeFactor is the brightness multiplier at time t of a clip that fades in
// and out over fade seconds.
func FadeFactor(t, duration, fade float64) float64 {
	if fade <= 0 {
		return 1
	}
	f := 1.0
	if in := t / fade; in < f {
		f = in
	}
	if out := (duration - t) / fade; out < f {
		f = out
	}
	return clamp01(f)
}

// ApplyFade darkens img in place by factor f; alpha is left untouched.
func ApplyFade(img *image.RGBA, f float64) {
	if f >= 1 {
		return
	}
	if f <= 0 {
		for i := 0; i+3 < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 0, 0, 0
		}
		return
	}
	scale := uint32(f * 256)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(uint32(img.Pix[i]) * scale >> 8)
		img.Pix[i+1] = uint8(uint32(img.Pix[i+1]) * scale >> 8)
		img.Pix[i+2] = uint8(uint32(img.Pix[i+2]) * scale >> 8)
	}
}

// Package analyzer measures how much detail parts of a still carry, so
// overlays can be placed where they cover the least.
package analyzer

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ContrastDetector finds edges with a Sobel operator on a downscaled
// grayscale copy of the image.
type ContrastDetector struct {
	EdgeThreshold float64 // gradient magnitude
	// MaxSide bounds the longer side of the analysed copy; 0 keeps full size.
	MaxSide int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{EdgeThreshold: 30, MaxSide: 480}
}

// EdgeMap marks edge pixels of one image.
type EdgeMap struct {
	edges  *image.Gray
	sx, sy float64
	origin image.Point
}

// Edges builds the edge map of img.
func (d *ContrastDetector) Edges(img image.Image) *EdgeMap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if long := max(w, h); d.MaxSide > 0 && long > d.MaxSide {
		w = max(1, w*d.MaxSide/long)
		h = max(1, h*d.MaxSide/long)
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, xdraw.Src, nil)

	return &EdgeMap{
		edges:  sobel(gray, d.EdgeThreshold),
		sx:     float64(w) / float64(max(1, b.Dx())),
		sy:     float64(h) / float64(max(1, b.Dy())),
		origin: b.Min,
	}
}

// Density is the share of edge pixels inside r, given in source coordinates.
// Areas outside the image count as empty.
func (m *EdgeMap) Density(r image.Rectangle) float64 {
	scaled := image.Rect(
		int(float64(r.Min.X-m.origin.X)*m.sx),
		int(float64(r.Min.Y-m.origin.Y)*m.sy),
		int(math.Ceil(float64(r.Max.X-m.origin.X)*m.sx)),
		int(math.Ceil(float64(r.Max.Y-m.origin.Y)*m.sy)),
	).Intersect(m.edges.Bounds())
	if scaled.Empty() {
		return 0
	}

	n := 0
	for y := scaled.Min.Y; y < scaled.Max.Y; y++ {
		row := m.edges.Pix[y*m.edges.Stride:]
		for x := scaled.Min.X; x < scaled.Max.X; x++ {
			if row[x] != 0 {
				n++
			}
		}
	}
	return float64(n) / float64(scaled.Dx()*scaled.Dy())
}

// Quietest returns the index of the candidate with the lowest edge density.
// Ties keep the earlier candidate; -1 means no candidates.
func (d *ContrastDetector) Quietest(img image.Image, candidates []image.Rectangle) int {
	if len(candidates) == 0 {
		return -1
	}
	m := d.Edges(img)
	best, bestDensity := 0, m.Density(candidates[0])
	for i := 1; i < len(candidates); i++ {
		if v := m.Density(candidates[i]); v < bestDensity {
			best, bestDensity = i, v
		}
	}
	return best
}

func sobel(g *image.Gray, threshold float64) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(g.Bounds())
	at := func(x, y int) float64 { return float64(g.Pix[y*g.Stride+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if math.Hypot(gx, gy) > threshold {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

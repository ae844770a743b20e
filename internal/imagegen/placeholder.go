package imagegen

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/source"
)

var (
	cardBackground = color.RGBA{R: 30, G: 30, B: 35, A: 255}
	cardText       = color.RGBA{R: 200, G: 200, B: 210, A: 255}
)

const (
	// text is drawn on a canvas this many times smaller and scaled up
	cardScale   = 4
	cardMargin  = 10
	maxCardText = 100
)

// Placeholder renders a plain card with the segment prompt instead of calling
// an image API.
type Placeholder struct {
	Width  int
	Height int
}

func (p Placeholder) Generate(ctx context.Context, seg models.Segment, style, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := seg.VisualPrompt
	if r := []rune(text); len(r) > maxCardText {
		text = string(r[:maxCardText])
	}
	return source.SavePNG(path, p.Card(text))
}

// Card draws text word-wrapped and centered on a dark background.
func (p Placeholder) Card(text string) *image.RGBA {
	w, h := p.Width/cardScale, p.Height/cardScale
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.NewUniform(cardBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: small, Src: image.NewUniform(cardText), Face: face}
	lines := wrap(d, text, w-2*cardMargin)

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil() + 3
	y := h/2 - len(lines)*lineHeight/2 + metrics.Ascent.Ceil()
	for _, line := range lines {
		lw := d.MeasureString(line).Ceil()
		d.Dot = fixed.P((w-lw)/2, y)
		d.DrawString(line)
		y += lineHeight
	}

	out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return out
}

func wrap(d *font.Drawer, text string, maxWidth int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		test := strings.TrimSpace(current + " " + word)
		if current == "" || d.MeasureString(test).Ceil() < maxWidth {
			current = test
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/faceless/internal/analyzer"
)

// AddCTACode stamps a QR code for url on the lower part of the image at path.
// The image is rewritten in place.
func AddCTACode(path, url string) error {
	img, err := LoadImage(path)
	if err != nil {
		return err
	}
	out, err := StampQR(img, url)
	if err != nil {
		return err
	}
	return SavePNG(path, out)
}

// StampQR returns a copy of img with a QR code for url on a white card,
// centered horizontally near the bottom edge, or near the top when the top
// carries less detail.
func StampQR(img image.Image, url string) (*image.RGBA, error) {
	b := img.Bounds()
	side := b.Dx() / 3
	if side < 64 {
		side = 64
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code for %s: %w", url, err)
	}
	code := qr.Image(side)

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	margin := side / 10
	x := (b.Dx() - side) / 2
	slots := []int{b.Dy() - side - b.Dy()/8, b.Dy() / 8}
	cards := make([]image.Rectangle, len(slots))
	for i, y := range slots {
		if y < 0 {
			slots[i] = 0
		}
		cards[i] = image.Rect(x-margin, slots[i]-margin, x+side+margin, slots[i]+side+margin).Intersect(out.Bounds())
	}
	pick := analyzer.NewContrastDetector().Quietest(out, cards)
	y, card := slots[pick], cards[pick]

	draw.Draw(out, card, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(x, y, x+side, y+side), code, code.Bounds().Min, draw.Over)
	return out, nil
}

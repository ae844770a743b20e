package source

import (
	"image"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const processedSuffix = "_processed"

// Normalize center-crops img to the w:h aspect ratio and resizes the crop to
// exactly w×h. An image that already has that size is returned as is.
func Normalize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	crop := CenterCrop(b, float64(w)/float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

// CenterCrop returns the largest rectangle of the given aspect ratio centered in b.
func CenterCrop(b image.Rectangle, ratio float64) image.Rectangle {
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return b
	}

	if float64(srcW)/float64(srcH) > ratio {
		cw := int(float64(srcH) * ratio)
		if cw < 1 {
			cw = 1
		}
		left := (srcW - cw) / 2
		return image.Rect(b.Min.X+left, b.Min.Y, b.Min.X+left+cw, b.Max.Y)
	}

	ch := int(float64(srcW) / ratio)
	if ch < 1 {
		ch = 1
	}
	top := (srcH - ch) / 2
	return image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Min.Y+top+ch)
}

// ProcessedPath is the sibling file a normalized image is written to.
func ProcessedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + processedSuffix + ".png"
}

// NormalizeFile normalizes the image at path into ProcessedPath(path) and
// returns the new path.
func NormalizeFile(path string, w, h int) (string, error) {
	img, err := LoadImage(path)
	if err != nil {
		return "", err
	}
	out := ProcessedPath(path)
	if err := SavePNG(out, Normalize(img, w, h)); err != nil {
		return "", err
	}
	return out, nil
}

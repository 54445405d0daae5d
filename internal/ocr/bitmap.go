package ocr

import (
	"errors"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

var errReleased = errors.New("bitmap already released")

// Bitmap is one decoded page. It is owned by the worker that rasterized it and
// must be released as soon as recognition is done.
type Bitmap struct {
	Page int
	DPI  int // 0 when unknown (plain images)
	Mode ColorMode

	img image.Image
}

// NewBitmap wraps img for page.
func NewBitmap(img image.Image, page, dpi int, mode ColorMode) *Bitmap {
	return &Bitmap{Page: page, DPI: dpi, Mode: mode, img: img}
}

// Image returns the pixels, or nil after Release.
func (b *Bitmap) Image() image.Image { return b.img }

// Bounds returns the pixel bounds; empty after Release.
func (b *Bitmap) Bounds() image.Rectangle {
	if b.img == nil {
		return image.Rectangle{}
	}
	return b.img.Bounds()
}

// Released reports whether the pixel buffer has been dropped.
func (b *Bitmap) Released() bool { return b.img == nil }

// Release drops the pixel buffer. Idempotent.
func (b *Bitmap) Release() { b.img = nil }

// EncodePNG writes the bitmap as PNG.
func (b *Bitmap) EncodePNG(w io.Writer) error {
	if b.img == nil {
		return errReleased
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, b.img)
}

// applyColorMode converts img for mode. Grayscale flattens transparency onto
// white so recognition never sees a black background.
func applyColorMode(img image.Image, mode ColorMode) image.Image {
	if mode != Grayscale {
		return img
	}
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Over)
	return gray
}

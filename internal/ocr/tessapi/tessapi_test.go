//go:build tessapi

package tessapi

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

func TestRegistered(t *testing.T) {
	if _, err := ocr.NewRecognizer(EngineName, ocr.Config{}, nil); err != nil {
		t.Fatalf("engine should self-register: %v", err)
	}
}

func TestRecognizeText(t *testing.T) {
	small := image.NewGray(image.Rect(0, 0, 120, 30))
	draw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: small, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 20)}
	d.DrawString("Hello PDF")
	big := image.NewGray(image.Rect(0, 0, 480, 120))
	xdraw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), xdraw.Src, nil)

	text, err := NewRecognizer(ocr.Config{}, nil).Recognize(context.Background(), ocr.NewBitmap(big, 1, 0, ocr.Grayscale), "eng")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(text), "hello") {
		t.Fatalf("unexpected OCR output: %q", text)
	}
}

func TestRecognizeReleasedBitmap(t *testing.T) {
	bmp := ocr.NewBitmap(image.NewGray(image.Rect(0, 0, 1, 1)), 1, 0, ocr.Grayscale)
	bmp.Release()
	if _, err := NewRecognizer(ocr.Config{}, nil).Recognize(context.Background(), bmp, "eng"); !errors.Is(err, common.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

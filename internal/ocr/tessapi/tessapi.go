//go:build tessapi

// Package tessapi runs recognition in-process through libtesseract (cgo) and
// registers itself as the "tessapi" engine. Build with -tags tessapi.
package tessapi

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// EngineName is the OCR_ENGINE value selecting this recognizer.
const EngineName = "tessapi"

func init() {
	ocr.RegisterRecognizer(EngineName, func(cfg ocr.Config, logger *slog.Logger) (ocr.Recognizer, error) {
		return NewRecognizer(cfg, logger), nil
	})
}

// Recognizer implements ocr.Recognizer with one gosseract client per call, so
// concurrent pages never share engine state.
type Recognizer struct {
	cfg           ocr.Config
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

// NewRecognizer constructs a libtesseract-backed recognizer.
func NewRecognizer(cfg ocr.Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{cfg: cfg, clientFactory: gosseract.NewClient, logger: logger}
}

// Recognize performs OCR on a single bitmap.
func (r *Recognizer) Recognize(ctx context.Context, bmp *ocr.Bitmap, lang string) (string, error) {
	if bmp == nil || bmp.Released() {
		return "", fmt.Errorf("%w: no bitmap to recognize", common.ErrRecognition)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: page %d: %v", common.ErrRecognition, bmp.Page, err)
	}
	if lang == "" {
		lang = constants.DefaultLanguage
	}
	start := time.Now()

	var buf bytes.Buffer
	if err := bmp.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("%w: page %d: encode bitmap: %v", common.ErrRecognition, bmp.Page, err)
	}

	c := r.clientFactory()
	defer c.Close()

	if r.cfg.TessdataDir != "" {
		c.SetTessdataPrefix(r.cfg.TessdataDir)
	}
	if err := c.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("%w: page %d: set language: %v", common.ErrRecognition, bmp.Page, err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("%w: page %d: set psm: %v", common.ErrRecognition, bmp.Page, err)
	}
	if bmp.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(bmp.DPI)); err != nil {
			return "", fmt.Errorf("%w: page %d: set dpi: %v", common.ErrRecognition, bmp.Page, err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("%w: page %d: set image: %v", common.ErrRecognition, bmp.Page, err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("%w: page %d: recognize text: %v", common.ErrRecognition, bmp.Page, err)
	}

	text = ocr.Normalize(text)
	r.logger.Debug("page recognized",
		"engine", EngineName,
		"page", bmp.Page,
		"lang", lang,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
)

// TesseractRecognizer runs the tesseract CLI, streaming the bitmap as PNG on stdin.
type TesseractRecognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseractRecognizer builds a CLI-backed recognizer.
func NewTesseractRecognizer(cfg Config, logger *slog.Logger) *TesseractRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &TesseractRecognizer{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Recognize returns the text on bmp. lang is passed to tesseract verbatim.
func (t *TesseractRecognizer) Recognize(ctx context.Context, bmp *Bitmap, lang string) (string, error) {
	if bmp == nil || bmp.Released() {
		return "", fmt.Errorf("%w: no bitmap to recognize", common.ErrRecognition)
	}
	if lang == "" {
		lang = constants.DefaultLanguage
	}
	start := time.Now()

	var buf bytes.Buffer
	if err := bmp.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("%w: page %d: encode bitmap: %v", common.ErrRecognition, bmp.Page, err)
	}

	// tesseract stdin stdout -l <lang> --psm 6 [--oem N] [--dpi N] [--tessdata-dir D]
	args := []string{"stdin", "stdout", "-l", lang, "--psm", strconv.Itoa(t.cfg.PSM)}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if bmp.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(bmp.DPI))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, &buf, args...)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: tesseract: %v: %s",
			common.ErrRecognition, bmp.Page, err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	text := Normalize(string(out))
	t.logger.Debug("page recognized",
		"page", bmp.Page,
		"lang", lang,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// convertHEICtoPNG converts a HEIC/HEIF file to a temporary PNG using the chosen converter.
// converter: "heif-convert" | "magick" | "sips"
//
// Returns (outPath, cleanup, err). cleanup is non-nil whenever a temp dir was created.
func convertHEICtoPNG(ctx context.Context, r Runner, logger *slog.Logger, converter, tempDir, in string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp(tempDir, "pageocr-heic-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn("failed to remove heic temp dir", "path", tmpDir, "error", err)
		}
	}
	out := filepath.Join(tmpDir, "page.png")

	switch converter {
	case "heif-convert":
		if _, errb, err2 := r.Run(ctx, "heif-convert", nil, in, out); err2 != nil {
			return "", cleanup, fmt.Errorf("heif-convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	case "magick":
		if _, errb, err2 := r.Run(ctx, "magick", nil, in, out); err2 != nil {
			return "", cleanup, fmt.Errorf("magick convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	case "sips":
		if _, errb, err2 := r.Run(ctx, "sips", nil, "-s", "format", "png", in, "--out", out); err2 != nil {
			return "", cleanup, fmt.Errorf("sips convert failed: %w: %s", err2, truncate(string(errb), 512))
		}
	default:
		return "", cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	logger.Debug("converted heic to png", "converter", converter)
	return out, cleanup, nil
}

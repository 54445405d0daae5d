package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// rasterizePDF renders a single page so peak memory stays at one page's bitmap
// regardless of document length.
func (r *PageRasterizer) rasterizePDF(ctx context.Context, doc *SourceDocument, page, dpi int, mode ColorMode) (*Bitmap, error) {
	tmpDir, err := os.MkdirTemp(r.cfg.TempDir, "pageocr-pp-*")
	if err != nil {
		return nil, rasterizeErr(page, "create temp dir: %v", err)
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -png -singlefile [-gray] <in.pdf> <tmp/page>
	args := []string{"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", "-singlefile"}
	if mode == Grayscale {
		args = append(args, "-gray")
	}
	args = append(args, doc.Path, prefix)

	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, nil, args...)
	if err != nil {
		return nil, rasterizeErr(page, "pdftoppm: %v: %s", err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	img, _, err := decodeImageFile(prefix + ".png")
	if err != nil {
		return nil, rasterizeErr(page, "decode rendered page: %v", err)
	}
	return NewBitmap(applyColorMode(img, mode), page, dpi, mode), nil
}

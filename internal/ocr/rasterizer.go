package ocr

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
)

// PageRasterizer renders PDF pages with poppler's pdftoppm and decodes plain
// images in-process.
type PageRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewRasterizer builds a PageRasterizer.
func NewRasterizer(cfg Config, logger *slog.Logger) *PageRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &PageRasterizer{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Rasterize renders exactly one page of doc.
func (r *PageRasterizer) Rasterize(ctx context.Context, doc *SourceDocument, page, dpi int, mode ColorMode) (*Bitmap, error) {
	if page < 1 {
		return nil, rasterizeErr(page, "page index must be >= 1")
	}
	if dpi <= 0 {
		return nil, rasterizeErr(page, "dpi must be positive, got %d", dpi)
	}
	start := time.Now()

	var (
		bmp *Bitmap
		err error
	)
	switch doc.Kind {
	case constants.PDF:
		bmp, err = r.rasterizePDF(ctx, doc, page, dpi, mode)
	case constants.IMAGE:
		bmp, err = r.rasterizeImage(ctx, doc, page, mode)
	default:
		err = rasterizeErr(page, "unsupported document kind %q", doc.Kind)
	}
	if err != nil {
		return nil, err
	}

	b := bmp.Bounds()
	r.logger.Debug("page rasterized",
		"page", page,
		"kind", doc.Kind,
		"dpi", dpi,
		"mode", string(mode),
		"width", b.Dx(),
		"height", b.Dy(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return bmp, nil
}

func decodeImageFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

func rasterizeErr(page int, format string, args ...any) error {
	return fmt.Errorf("%w: page %d: %s", common.ErrRasterization, page, fmt.Sprintf(format, args...))
}

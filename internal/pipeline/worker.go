package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// PageResult is the outcome of one page: text on success, Err on failure.
type PageResult struct {
	Page     int
	Text     string
	Err      error
	Duration time.Duration
}

// OK reports whether the page produced text.
func (r PageResult) OK() bool { return r.Err == nil }

// Status tags the result for reports.
func (r PageResult) Status() constants.PageStatus {
	if r.Err != nil {
		return constants.PageStatusFailed
	}
	return constants.PageStatusOK
}

// Fragment is what the page contributes to the document text.
func (r PageResult) Fragment() string {
	if r.Err != nil {
		return fmt.Sprintf("[Error processing page: %v]", r.Err)
	}
	return r.Text
}

// Worker turns one page into a PageResult. Errors and panics from either stage
// stay inside the result; they never escape to sibling pages.
type Worker struct {
	rasterizer ocr.Rasterizer
	recognizer ocr.Recognizer
	dpi        int
	mode       ocr.ColorMode
	logger     *slog.Logger
}

func NewWorker(r ocr.Rasterizer, rec ocr.Recognizer, dpi int, mode ocr.ColorMode, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{rasterizer: r, recognizer: rec, dpi: dpi, mode: mode, logger: logger}
}

// ProcessPage rasterizes and recognizes one page. The bitmap is released
// before returning on every path.
func (w *Worker) ProcessPage(ctx context.Context, doc *ocr.SourceDocument, page int, lang string) (res PageResult) {
	start := time.Now()
	res.Page = page

	defer func() {
		if p := recover(); p != nil {
			res = PageResult{Page: page, Err: fmt.Errorf("%w: page %d: panic: %v", common.ErrInternal, page, p)}
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			w.logger.Warn("page failed", "page", page, "error", res.Err, "duration_ms", res.Duration.Milliseconds())
			return
		}
		w.logger.Debug("page done", "page", page, "chars", len(res.Text), "duration_ms", res.Duration.Milliseconds())
	}()

	bmp, err := w.rasterizer.Rasterize(ctx, doc, page, w.dpi, w.mode)
	if err != nil {
		res.Err = err
		return res
	}
	defer bmp.Release()

	text, err := w.recognizer.Recognize(ctx, bmp, lang)
	if err != nil {
		res.Err = err
		return res
	}
	res.Text = text
	return res
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// Pipeline turns a SourceDocument into DocumentText: count pages, run one
// Worker per page, then assemble the fragments in page order.
type Pipeline struct {
	rasterizer ocr.Rasterizer
	recognizer ocr.Recognizer
	counter    PageCounter
	opts       Options
	logger     *slog.Logger
}

func New(r ocr.Rasterizer, rec ocr.Recognizer, counter PageCounter, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{
		rasterizer: r,
		recognizer: rec,
		counter:    counter,
		opts:       o,
		logger:     logger,
	}
}

// Options returns the pipeline defaults.
func (p *Pipeline) Options() Options { return p.opts }

// Process runs the whole document. Per-page failures are folded into the
// result; only invalid requests, undecodable documents and cancellation before
// dispatch are returned as errors. Process does not close doc.
func (p *Pipeline) Process(ctx context.Context, doc *ocr.SourceDocument, req Request) (DocumentText, error) {
	if doc == nil {
		return DocumentText{}, common.InvalidArgumentError("document is required")
	}
	opts, err := p.opts.merge(req)
	if err != nil {
		return DocumentText{}, err
	}
	logger := common.LoggerFromContext(ctx, p.logger).With(
		"document", doc.Name,
		"kind", doc.Kind,
		"mode", opts.Mode,
		"dpi", opts.DPI,
		"lang", opts.Language,
	)

	start := time.Now()
	pages, err := p.pageCount(ctx, doc)
	if err != nil {
		logger.Error("page count failed", "error", err)
		return DocumentText{}, err
	}
	if err := ctx.Err(); err != nil {
		return DocumentText{}, fmt.Errorf("%w: cancelled before dispatch: %v", common.ErrInternal, err)
	}
	logger.Info("processing document", "pages", pages)

	worker := NewWorker(p.rasterizer, p.recognizer, opts.DPI, opts.ColorMode, logger)
	var results []PageResult
	switch opts.Mode {
	case Sequential:
		results = runSequential(ctx, worker, doc, pages, opts.Language)
	default:
		results = runParallel(ctx, worker, doc, pages, opts.Language, opts.Workers)
	}

	out := DocumentText{
		Text:  Assemble(doc.Kind, results),
		Pages: results,
	}
	logger.Info("document processed",
		"pages", pages,
		"failed", len(out.FailedPages()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (p *Pipeline) pageCount(ctx context.Context, doc *ocr.SourceDocument) (int, error) {
	switch doc.Kind {
	case constants.IMAGE:
		return 1, nil
	case constants.PDF:
		if p.counter == nil {
			return 0, fmt.Errorf("%w: no page counter configured", common.ErrInternal)
		}
		n, err := p.counter.CountPages(ctx, doc)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, common.DecodeErrorf("negative page count %d", n)
		}
		return n, nil
	default:
		return 0, common.DecodeErrorf("unsupported document kind %q", doc.Kind)
	}
}

// runSequential keeps at most one bitmap alive: each page is released before
// the next is rasterized.
func runSequential(ctx context.Context, w *Worker, doc *ocr.SourceDocument, pages int, lang string) []PageResult {
	results := make([]PageResult, pages)
	for i := range results {
		results[i] = w.ProcessPage(ctx, doc, i+1, lang)
	}
	return results
}

// runParallel dispatches every page on a pool of at most workers goroutines.
// Each page writes only its own slot, so completion order does not matter.
func runParallel(ctx context.Context, w *Worker, doc *ocr.SourceDocument, pages int, lang string, workers int) []PageResult {
	results := make([]PageResult, pages)
	if pages == 0 {
		return results
	}
	if workers > pages {
		workers = pages
	}

	// Plain group, not WithContext: one failed page must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range results {
		page := i + 1
		g.Go(func() error {
			results[page-1] = w.ProcessPage(ctx, doc, page, lang)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

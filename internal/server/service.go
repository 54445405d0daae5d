package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ingest"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
)

// Processor is the part of the pipeline the service depends on.
type Processor interface {
	Process(ctx context.Context, doc *ocr.SourceDocument, req pipeline.Request) (pipeline.DocumentText, error)
}

// DocumentInfo describes the ingested document in responses and reports.
type DocumentInfo struct {
	Name    string
	Kind    string
	Size    int64
	HashHex string
}

// Result is a processed document.
type Result struct {
	Document DocumentInfo
	Text     pipeline.DocumentText
}

// OCRService ties ingestion to the pipeline and owns the document lifecycle:
// every ingested document is closed once processing ends, on every path.
type OCRService struct {
	ingestor  ingest.Ingestor
	processor Processor
	logger    *slog.Logger
}

func NewOCRService(ing ingest.Ingestor, proc Processor, logger *slog.Logger) *OCRService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRService{ingestor: ing, processor: proc, logger: logger}
}

// Ingest stores r; the caller must pass the document to Process or Close it.
func (s *OCRService) Ingest(ctx context.Context, r io.Reader, filename string) (*ocr.SourceDocument, error) {
	doc, err := s.ingestor.Ingest(ctx, r, filename)
	if err != nil {
		common.LoggerFromContext(ctx, s.logger).Warn("ingest failed", "name", filename, "error", err)
		return nil, err
	}
	return doc, nil
}

// Process runs the pipeline on doc and closes it.
func (s *OCRService) Process(ctx context.Context, doc *ocr.SourceDocument, req pipeline.Request) (Result, error) {
	logger := common.LoggerFromContext(ctx, s.logger)
	defer func() {
		if err := doc.Close(); err != nil {
			logger.Warn("release document failed", "path", doc.Path, "error", err)
		}
	}()

	start := time.Now()
	text, err := s.processor.Process(ctx, doc, req)
	if err != nil {
		logger.Warn("ocr failed", "name", doc.Name, "error", err)
		return Result{}, err
	}
	logger.Info("ocr completed",
		"name", doc.Name,
		"kind", doc.Kind,
		"sha256", doc.HashHex,
		"pages", len(text.Pages),
		"failed_pages", len(text.FailedPages()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		Document: DocumentInfo{Name: doc.Name, Kind: doc.Kind, Size: doc.Size, HashHex: doc.HashHex},
		Text:     text,
	}, nil
}

// Recognize is Ingest followed by Process.
func (s *OCRService) Recognize(ctx context.Context, r io.Reader, filename string, req pipeline.Request) (Result, error) {
	doc, err := s.Ingest(ctx, r, filename)
	if err != nil {
		return Result{}, err
	}
	return s.Process(ctx, doc, req)
}

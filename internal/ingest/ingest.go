package ingest

import (
	"context"
	"io"

	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// FileResult is the per-file outcome of a directory run.
type FileResult struct {
	SourcePath string
	Kind       string
	HashHex    string
	Size       int64
	Err        string
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Ingestor turns uploaded bytes or local files into SourceDocuments. Callers
// own the returned document and must Close it once the pipeline is done.
type Ingestor interface {
	// Ingest persists r to transient storage; filename is only a kind hint.
	Ingest(ctx context.Context, r io.Reader, filename string) (*ocr.SourceDocument, error)
	// OpenPath wraps an existing file without copying it.
	OpenPath(ctx context.Context, path string) (*ocr.SourceDocument, error)
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// VisitFunc handles one opened document. The document is closed by the caller
// of VisitFunc.
type VisitFunc func(ctx context.Context, doc *ocr.SourceDocument) error

// IngestDirectory walks root, skips hidden entries if requested, opens every
// supported file and hands it to visit. Per-file failures are recorded and the
// walk continues; only a cancelled context stops it early.
func IngestDirectory(ctx context.Context, ing Ingestor, root string, skipHidden bool, visit VisitFunc) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res := FileResult{SourcePath: path, Kind: constants.MapExtToFormat(filepath.Ext(path))}
		doc, err := ing.OpenPath(ctx, path)
		if err != nil {
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			return nil
		}
		res.HashHex, res.Size = doc.HashHex, doc.Size

		err = visit(ctx, doc)
		_ = doc.Close()
		if err != nil {
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			return nil
		}
		results = append(results, res)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

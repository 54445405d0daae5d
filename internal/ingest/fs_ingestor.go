package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

const copyChunk = 1 << 20

// TempIngestor spools uploads into TempDir, one file per document, and removes
// the file when the document is closed.
type TempIngestor struct {
	TempDir  string
	MaxBytes int64 // 0 = unlimited
	logger   *slog.Logger
}

func NewTempIngestor(tempDir string, maxBytes int64, logger *slog.Logger) *TempIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &TempIngestor{TempDir: tempDir, MaxBytes: maxBytes, logger: logger}
}

func (i *TempIngestor) Ingest(ctx context.Context, r io.Reader, filename string) (*ocr.SourceDocument, error) {
	if r == nil {
		return nil, common.IngestionErrorf("no content")
	}
	if err := ctx.Err(); err != nil {
		return nil, common.IngestionErrorf("cancelled: %v", err)
	}

	f, err := os.CreateTemp(i.TempDir, "upload-*")
	if err != nil {
		i.logger.Error("create temp file failed", "dir", i.TempDir, "error", err)
		return nil, common.IngestionErrorf("create temp file: %v", err)
	}
	path := f.Name()
	remove := func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	fail := func(err error) (*ocr.SourceDocument, error) {
		_ = f.Close()
		if rmErr := remove(); rmErr != nil {
			i.logger.Warn("remove temp file failed", "path", path, "error", rmErr)
		}
		return nil, err
	}

	h := sha256.New()
	src := r
	if i.MaxBytes > 0 {
		src = io.LimitReader(r, i.MaxBytes+1)
	}
	size, err := io.CopyBuffer(io.MultiWriter(f, h), src, make([]byte, copyChunk))
	if err != nil {
		return fail(common.IngestionErrorf("read upload: %v", err))
	}
	if i.MaxBytes > 0 && size > i.MaxBytes {
		return fail(common.IngestionErrorf("upload exceeds %s", humanize.IBytes(uint64(i.MaxBytes))))
	}
	if size == 0 {
		return fail(common.IngestionErrorf("empty upload"))
	}
	if err := f.Close(); err != nil {
		return fail(common.IngestionErrorf("flush upload: %v", err))
	}

	kind, ext, err := detectKind(path, filename)
	if err != nil {
		if rmErr := remove(); rmErr != nil {
			i.logger.Warn("remove temp file failed", "path", path, "error", rmErr)
		}
		return nil, err
	}

	hashHex := hex.EncodeToString(h.Sum(nil))
	i.logger.Info("upload stored",
		"name", filename,
		"kind", kind,
		"size", humanize.IBytes(uint64(size)),
		"sha256", hashHex,
	)
	return ocr.NewSourceDocument(path, filename, kind, ext, size, hashHex, remove), nil
}

// OpenPath hashes an existing file and returns a document that does not own it.
func (i *TempIngestor) OpenPath(ctx context.Context, path string) (*ocr.SourceDocument, error) {
	if strings.TrimSpace(path) == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, common.IngestionErrorf("cancelled: %v", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, common.IngestionErrorf("abs path: %v", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, common.IngestionErrorf("open: %v", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file failed", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	size, err := io.CopyBuffer(h, f, make([]byte, copyChunk))
	if err != nil {
		return nil, common.IngestionErrorf("hash: %v", err)
	}
	if size == 0 {
		return nil, common.IngestionErrorf("empty file %s", filepath.Base(abs))
	}

	kind, ext, err := detectKind(abs, filepath.Base(abs))
	if err != nil {
		return nil, err
	}
	return ocr.NewSourceDocument(abs, filepath.Base(abs), kind, ext, size, hex.EncodeToString(h.Sum(nil)), nil), nil
}

// detectKind trusts a supported extension and otherwise sniffs the content.
func detectKind(path, filename string) (kind, ext string, err error) {
	ext = constants.NormalizeExt(filepath.Ext(filename))
	if kind = constants.MapExtToFormat(ext); kind != "" {
		return kind, ext, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", common.IngestionErrorf("reopen upload: %v", err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)

	if ext = SniffExt(head[:n]); ext == "" {
		return "", "", common.DecodeErrorf("cannot determine document kind of %q", filename)
	}
	return constants.MapExtToFormat(ext), ext, nil
}

package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
)

const (
	pagesSheet     = "Pages"
	documentsSheet = "Documents"

	// Excel rejects cells longer than 32767 characters.
	maxCellChars = 32000
)

// Report is one processed document. Err is set when the document failed as a
// whole (ingestion or decode); Result is empty in that case.
type Report struct {
	SourcePath string
	Kind       string
	Size       int64
	HashHex    string
	Result     pipeline.DocumentText
	Err        error
}

// Service renders OCR results as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// PagesXLSX returns a workbook with one row per page and one row per document.
func (s *Service) PagesXLSX(ctx context.Context, reports []Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteXLSX(ctx, &buf, reports); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX streams the workbook to w.
func (s *Service) WriteXLSX(ctx context.Context, w io.Writer, reports []Report) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close workbook failed", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", pagesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(documentsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	idx, _ := f.GetSheetIndex(pagesSheet)
	f.SetActiveSheet(idx)

	writeRow := func(sheet string, row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(pagesSheet, 1, "Source", "Kind", "Page", "Status", "Characters", "Duration (ms)", "Text", "Error"); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	if err := writeRow(documentsSheet, 1, "Source", "Kind", "Size", "SHA-256", "Pages", "Failed Pages", "Error"); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	pageRow, pages := 2, 0
	for i, r := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}

		docErr := ""
		if r.Err != nil {
			docErr = r.Err.Error()
			if err := writeRow(pagesSheet, pageRow, r.SourcePath, r.Kind, "", string(constants.PageStatusFailed), 0, 0, "", docErr); err != nil {
				return fmt.Errorf("xlsx row: %w", err)
			}
			pageRow++
		}
		for _, p := range r.Result.Pages {
			errText := ""
			if p.Err != nil {
				errText = p.Err.Error()
			}
			if err := writeRow(pagesSheet, pageRow,
				r.SourcePath,
				r.Kind,
				p.Page,
				string(p.Status()),
				len([]rune(p.Text)),
				p.Duration.Milliseconds(),
				truncate(p.Text, maxCellChars),
				errText,
			); err != nil {
				return fmt.Errorf("xlsx row: %w", err)
			}
			pageRow++
			pages++
		}

		if err := writeRow(documentsSheet, i+2,
			r.SourcePath,
			r.Kind,
			humanize.IBytes(uint64(r.Size)),
			r.HashHex,
			len(r.Result.Pages),
			len(r.Result.FailedPages()),
			docErr,
		); err != nil {
			return fmt.Errorf("xlsx row: %w", err)
		}
	}

	_ = f.SetColWidth(pagesSheet, "A", "A", 48) // source
	_ = f.SetColWidth(pagesSheet, "B", "F", 12)
	_ = f.SetColWidth(pagesSheet, "G", "G", 80) // text
	_ = f.SetColWidth(pagesSheet, "H", "H", 48) // error
	_ = f.SetColWidth(documentsSheet, "A", "A", 48)
	_ = f.SetColWidth(documentsSheet, "D", "D", 66) // sha-256
	_ = f.SetColWidth(documentsSheet, "G", "G", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(reports),
		"pages", pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

package pipeline

import (
	"context"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// PageCounter reports how many pages a PDF has without rendering any of them.
type PageCounter interface {
	CountPages(ctx context.Context, doc *ocr.SourceDocument) (int, error)
}

// PDFCounter reads the page tree with pdfcpu.
type PDFCounter struct{}

func NewPDFCounter() *PDFCounter { return &PDFCounter{} }

func (PDFCounter) CountPages(ctx context.Context, doc *ocr.SourceDocument) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.Open(doc.Path)
	if err != nil {
		return 0, common.DecodeErrorf("open pdf: %v", err)
	}
	defer f.Close()

	// pdfcpu may annotate the configuration while reading, so each call gets its own.
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(f, conf)
	if err != nil {
		return 0, common.DecodeErrorf("read page count: %v", err)
	}
	return n, nil
}

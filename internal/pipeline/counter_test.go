package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/testutil"
)

func TestPDFCounter_CountPages(t *testing.T) {
	path := testutil.WriteFile(t, "three.pdf", testutil.BuildPDF(3))
	doc := ocr.NewSourceDocument(path, "three.pdf", constants.PDF, "pdf", 0, "", nil)

	n, err := NewPDFCounter().CountPages(context.Background(), doc)
	if err != nil {
		t.Fatalf("CountPages: %v", err)
	}
	if n != 3 {
		t.Errorf("pages = %d, want 3", n)
	}
}

func TestPDFCounter_Errors(t *testing.T) {
	garbage := testutil.WriteFile(t, "junk.pdf", []byte("this is not a pdf"))

	tests := []struct {
		name string
		path string
	}{
		{"not a pdf", garbage},
		{"missing file", garbage + ".missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ocr.NewSourceDocument(tt.path, "x.pdf", constants.PDF, "pdf", 0, "", nil)
			_, err := NewPDFCounter().CountPages(context.Background(), doc)
			if !errors.Is(err, common.ErrDocumentDecode) {
				t.Fatalf("err = %v, want ErrDocumentDecode", err)
			}
		})
	}
}

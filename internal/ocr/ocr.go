package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
)

// Config locates the external engines and carries engine-wide knobs.
type Config struct {
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir   string
	HeicConverter string // "magick" | "heif-convert" | "sips"
	TempDir       string

	PSM int // page segmentation mode; 0 -> 6 (single uniform block)
	OEM int // 1 = LSTM; leave 0 to use default
}

func (c *Config) defaults() {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.HeicConverter == "" {
		c.HeicConverter = "magick"
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.PSM <= 0 {
		c.PSM = constants.TesseractPSM
	}
}

// ColorMode selects the pixel format of a rasterized page.
type ColorMode string

const (
	Grayscale ColorMode = constants.ColorGrayscale
	Color     ColorMode = constants.ColorFull
)

// ParseColorMode parses "grayscale" or "color"; empty means Grayscale.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", constants.ColorGrayscale, "gray", "grey":
		return Grayscale, nil
	case constants.ColorFull, "colour", "rgb":
		return Color, nil
	}
	return "", common.InvalidArgumentErrorf("unknown color mode %q", s)
}

// SourceDocument is a read-only handle on ingested content. The pipeline only
// reads Path; whoever created the document releases it with Close.
type SourceDocument struct {
	Path    string
	Name    string // original filename, informational
	Kind    string // constants.PDF | constants.IMAGE
	Ext     string // normalized, without dot
	Size    int64
	HashHex string

	release   func() error
	closeOnce sync.Once
	closeErr  error
}

// NewSourceDocument builds a document handle; release may be nil when the
// caller does not own the backing file.
func NewSourceDocument(path, name, kind, ext string, size int64, hashHex string, release func() error) *SourceDocument {
	return &SourceDocument{
		Path:    path,
		Name:    name,
		Kind:    kind,
		Ext:     constants.NormalizeExt(ext),
		Size:    size,
		HashHex: hashHex,
		release: release,
	}
}

// IsPDF reports whether the document is a multi-page PDF.
func (d *SourceDocument) IsPDF() bool { return d.Kind == constants.PDF }

// Close releases the backing storage. Safe to call more than once.
func (d *SourceDocument) Close() error {
	d.closeOnce.Do(func() {
		if d.release != nil {
			d.closeErr = d.release()
		}
	})
	return d.closeErr
}

// Rasterizer converts one page of a document into a bitmap.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc *SourceDocument, page, dpi int, mode ColorMode) (*Bitmap, error)
}

// Recognizer extracts text from one bitmap. Implementations must not keep a
// reference to the bitmap after returning.
type Recognizer interface {
	Recognize(ctx context.Context, bmp *Bitmap, lang string) (string, error)
}

// RecognizerFactory builds a named recognizer.
type RecognizerFactory func(cfg Config, logger *slog.Logger) (Recognizer, error)

var (
	registryMu  sync.RWMutex
	recognizers = map[string]RecognizerFactory{
		"tesseract": func(cfg Config, logger *slog.Logger) (Recognizer, error) {
			return NewTesseractRecognizer(cfg, logger), nil
		},
	}
)

// RegisterRecognizer makes an engine selectable by name (OCR_ENGINE).
func RegisterRecognizer(name string, f RecognizerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	recognizers[name] = f
}

// NewRecognizer builds the engine registered under name.
func NewRecognizer(name string, cfg Config, logger *slog.Logger) (Recognizer, error) {
	registryMu.RLock()
	f, ok := recognizers[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown OCR engine %q (available: %s)", name, strings.Join(Engines(), ", "))
	}
	return f(cfg, logger)
}

// Engines lists registered engine names.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(recognizers))
	for n := range recognizers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

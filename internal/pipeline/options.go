package pipeline

import (
	"runtime"
	"strings"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
)

// Mode is the page dispatch strategy.
type Mode string

const (
	// Parallel runs pages on a bounded pool sized to the host.
	Parallel Mode = constants.ModeParallel
	// Sequential runs one page at a time so at most one bitmap is alive.
	Sequential Mode = constants.ModeSequential
)

// ParseMode parses "parallel" or "sequential"; empty means Parallel.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", constants.ModeParallel:
		return Parallel, nil
	case constants.ModeSequential:
		return Sequential, nil
	}
	return "", common.InvalidArgumentErrorf("unknown concurrency mode %q", s)
}

// Options are the pipeline-wide defaults.
type Options struct {
	DPI       int
	ColorMode ocr.ColorMode
	Mode      Mode
	Language  string
	Workers   int // parallel pool size; 0 -> runtime.NumCPU()
}

type Option func(*Options)

func WithDPI(dpi int) Option {
	return func(o *Options) {
		if dpi > 0 {
			o.DPI = dpi
		}
	}
}

func WithColorMode(mode ocr.ColorMode) Option {
	return func(o *Options) {
		if mode != "" {
			o.ColorMode = mode
		}
	}
}

func WithMode(mode Mode) Option {
	return func(o *Options) {
		if mode != "" {
			o.Mode = mode
		}
	}
}

func WithLanguage(lang string) Option {
	return func(o *Options) {
		if lang != "" {
			o.Language = lang
		}
	}
}

func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

func defaultOptions() Options {
	return Options{
		DPI:       constants.DefaultDPI,
		ColorMode: ocr.Grayscale,
		Mode:      Parallel,
		Language:  constants.DefaultLanguage,
		Workers:   runtime.NumCPU(),
	}
}

// Request carries per-document overrides; zero values fall back to the
// pipeline's Options.
type Request struct {
	Language  string
	Mode      Mode
	DPI       int
	ColorMode ocr.ColorMode
}

func (o Options) merge(req Request) (Options, error) {
	out := o
	if req.Language != "" {
		out.Language = req.Language
	}
	if req.Mode != "" {
		out.Mode = req.Mode
	}
	if req.DPI != 0 {
		out.DPI = req.DPI
	}
	if req.ColorMode != "" {
		out.ColorMode = req.ColorMode
	}
	out.Mode = Mode(strings.ToLower(string(out.Mode)))
	out.ColorMode = ocr.ColorMode(strings.ToLower(string(out.ColorMode)))

	v := common.NewValidator().
		Field("lang", out.Language, common.Required, common.LanguageCode).
		Field("dpi", out.DPI, common.IntRange(1, constants.MaxDPI)).
		Field("color_mode", string(out.ColorMode), common.OneOf(string(ocr.Grayscale), string(ocr.Color))).
		Field("concurrency", string(out.Mode), common.OneOf(string(Parallel), string(Sequential)))
	if err := v.Error(); err != nil {
		return Options{}, err
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	return out, nil
}

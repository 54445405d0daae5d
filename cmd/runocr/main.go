package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/pageocr/internal/app"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
)

type pageOut struct {
	Page       int    `json:"page"`
	Status     string `json:"status"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func main() {
	var (
		lang    = flag.String("lang", "", "OCR language, e.g. eng or eng+deu (default from OCR_LANG)")
		dpi     = flag.Int("dpi", 0, "rasterization DPI (default from OCR_DPI)")
		color   = flag.String("color", "", "color mode: grayscale | color")
		mode    = flag.String("mode", "", "concurrency mode: parallel | sequential")
		asJSON  = flag.Bool("json", false, "print per-page results as JSON instead of plain text")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: runocr [flags] <file.pdf|image>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// stdout carries the text; logs go to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	req, err := buildRequest(*lang, *dpi, *color, *mode)
	if err != nil {
		logger.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build OCR stack", "error", err, "engines", ocr.Engines())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := common.WithTimeout(ctx, *timeout)
	defer cancel()

	doc, err := a.Ingestor.OpenPath(ctx, path)
	if err != nil {
		logger.Error("open document", "path", path, "error", err)
		os.Exit(1)
	}
	defer doc.Close()

	start := time.Now()
	res, err := a.Pipeline.Process(ctx, doc, req)
	dur := time.Since(start)
	if err != nil {
		logger.Error("ocr failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	if *asJSON {
		out := make([]pageOut, 0, len(res.Pages))
		for _, p := range res.Pages {
			po := pageOut{Page: p.Page, Status: string(p.Status()), Text: p.Text, DurationMs: p.Duration.Milliseconds()}
			if p.Err != nil {
				po.Error = p.Err.Error()
			}
			out = append(out, po)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logger.Error("write output", "error", err)
			os.Exit(1)
		}
	} else if _, err := fmt.Fprintln(os.Stdout, res.Text); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}

	logger.Info("ocr OK",
		"path", path,
		"kind", doc.Kind,
		"pages", len(res.Pages),
		"failed_pages", res.FailedPages(),
		"chars", len(res.Text),
		"duration_ms", dur.Milliseconds(),
	)
	if len(res.Pages) > 0 && len(res.FailedPages()) == len(res.Pages) {
		os.Exit(3)
	}
}

func buildRequest(lang string, dpi int, color, mode string) (pipeline.Request, error) {
	req := pipeline.Request{Language: lang, DPI: dpi}
	if color != "" {
		c, err := ocr.ParseColorMode(color)
		if err != nil {
			return req, err
		}
		req.ColorMode = c
	}
	if mode != "" {
		m, err := pipeline.ParseMode(mode)
		if err != nil {
			return req, err
		}
		req.Mode = m
	}
	return req, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/pageocr/internal/app"
	"github.com/joseph-ayodele/pageocr/internal/async"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/export"
	"github.com/joseph-ayodele/pageocr/internal/ingest"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir           = flag.String("dir", "", "directory of documents to OCR (required)")
		out           = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		includeHidden = flag.Bool("include-hidden", false, "also process hidden files and directories")
		sidecars      = flag.Bool("txt", false, "write <file>.txt next to every processed document")
		watch         = flag.Bool("watch", false, "keep running and OCR documents as they appear (implies -txt, no XLSX)")
		lang          = flag.String("lang", "", "OCR language (default from OCR_LANG)")
		mode          = flag.String("mode", "", "concurrency mode: parallel | sequential")
		docWorkers    = flag.Int("doc-workers", 2, "documents processed at once in -watch mode")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "ocr-pages.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	req := pipeline.Request{Language: *lang}
	if *mode != "" {
		m, err := pipeline.ParseMode(*mode)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		req.Mode = m
	}

	cfg := common.LoadConfig()
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build OCR stack", "error", err, "engines", ocr.Engines())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		if err := runWatch(ctx, a, *dir, !*includeHidden, *docWorkers, req, logger); err != nil {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	start := time.Now()
	var reports []export.Report
	visit := func(ctx context.Context, doc *ocr.SourceDocument) error {
		r := export.Report{SourcePath: doc.Path, Kind: doc.Kind, Size: doc.Size, HashHex: doc.HashHex}
		res, err := a.Pipeline.Process(ctx, doc, req)
		if err != nil {
			r.Err = err
			reports = append(reports, r)
			logger.Error("failed to process file", "path", doc.Path, "error", err)
			return err
		}
		r.Result = res
		reports = append(reports, r)
		if *sidecars {
			if err := writeSidecar(doc.Path, res.Text); err != nil {
				logger.Warn("write sidecar failed", "path", doc.Path, "error", err)
			}
		}
		logger.Info("processed file", "path", doc.Path, "pages", len(res.Pages), "failed_pages", len(res.FailedPages()))
		return nil
	}

	logger.Info("starting batch", "dir", *dir)
	results, stats, err := ingest.IngestDirectory(ctx, a.Ingestor, *dir, !*includeHidden, visit)
	if err != nil {
		logger.Error("failed to walk directory", "error", err)
		os.Exit(1)
	}
	reports = appendOpenFailures(reports, results)

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := a.Exporter.PagesXLSX(ctx, reports)
	if err != nil {
		logger.Error("failed to build report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents matched: %d\n", stats.Matched)
	fmt.Printf("- Documents processed: %d\n", stats.Succeeded)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", *out)
}

// appendOpenFailures adds a report row for files that could not even be opened.
func appendOpenFailures(reports []export.Report, results []ingest.FileResult) []export.Report {
	seen := make(map[string]bool, len(reports))
	for _, r := range reports {
		seen[r.SourcePath] = true
	}
	for _, fr := range results {
		if fr.Err == "" {
			continue
		}
		abs, err := filepath.Abs(fr.SourcePath)
		if err != nil {
			abs = fr.SourcePath
		}
		if seen[abs] {
			continue
		}
		reports = append(reports, export.Report{
			SourcePath: abs,
			Kind:       fr.Kind,
			Size:       fr.Size,
			HashHex:    fr.HashHex,
			Err:        fmt.Errorf("%s", fr.Err),
		})
	}
	return reports
}

func runWatch(ctx context.Context, a *app.App, dir string, skipHidden bool, workers int, req pipeline.Request, logger *slog.Logger) error {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:      []string{dir},
		SkipHidden: skipHidden,
		Debounce:   500 * time.Millisecond,
	}, logger)
	if err != nil {
		return err
	}

	queue := async.NewDocumentQueue(func(ctx context.Context, job async.Job) error {
		return processOne(ctx, a, job.Path, req)
	}, logger,
		async.WithWorkers(workers),
		async.WithProcessTimeout(a.Config.Server.RequestTimeout),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		queue.Shutdown(shutdownCtx)
	}()
	logger.Info("watching for documents", "dir", dir, "workers", workers)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", "error", err)
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if err := queue.Enqueue(ctx, async.Job{Path: path, TraceID: common.NewRequestID()}); err != nil {
				logger.Warn("could not queue document", "path", path, "error", err)
			}
		}
	}
}

func processOne(ctx context.Context, a *app.App, path string, req pipeline.Request) error {
	doc, err := a.Ingestor.OpenPath(ctx, path)
	if err != nil {
		return err
	}
	defer doc.Close()
	res, err := a.Pipeline.Process(ctx, doc, req)
	if err != nil {
		return err
	}
	return writeSidecar(doc.Path, res.Text)
}

func writeSidecar(path, text string) error {
	return os.WriteFile(path+".txt", []byte(text), 0o644)
}

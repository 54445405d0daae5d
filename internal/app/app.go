// Package app wires configuration into the OCR stack shared by the binaries.
package app

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/joseph-ayodele/pageocr/constants"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/export"
	"github.com/joseph-ayodele/pageocr/internal/ingest"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/pipeline"
	"github.com/joseph-ayodele/pageocr/internal/server"
)

type App struct {
	Config   *common.Config
	Pipeline *pipeline.Pipeline
	Ingestor *ingest.TempIngestor
	Service  *server.OCRService
	Exporter *export.Service
}

// New builds the stack from cfg. The configured engine must be registered;
// see ocr.Engines.
func New(cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ocrCfg := OCRConfig(cfg.OCR)

	rec, err := ocr.NewRecognizer(cfg.OCR.Engine, ocrCfg, logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}
	opts, err := PipelineOptions(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(ocr.NewRasterizer(ocrCfg, logger), rec, pipeline.NewPDFCounter(), logger, opts...)
	ing := ingest.NewTempIngestor(cfg.OCR.TempDir, cfg.Server.MaxUploadBytes, logger)

	for _, tool := range MissingTools(cfg.OCR) {
		logger.Warn("external tool not found on PATH", "tool", tool)
	}

	return &App{
		Config:   cfg,
		Pipeline: pipe,
		Ingestor: ing,
		Service:  server.NewOCRService(ing, pipe, logger),
		Exporter: export.NewService(logger),
	}, nil
}

// OCRConfig maps the environment configuration onto the engine config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TessdataDir:   c.TessdataDir,
		HeicConverter: c.HeicConverter,
		TempDir:       c.TempDir,
		PSM:           constants.TesseractPSM,
	}
}

// PipelineOptions turns the configured defaults into pipeline options.
func PipelineOptions(c common.PipelineConfig) ([]pipeline.Option, error) {
	color, err := ocr.ParseColorMode(c.ColorMode)
	if err != nil {
		return nil, fmt.Errorf("OCR_COLOR_MODE: %w", err)
	}
	mode, err := pipeline.ParseMode(c.Mode)
	if err != nil {
		return nil, fmt.Errorf("OCR_CONCURRENCY_MODE: %w", err)
	}
	return []pipeline.Option{
		pipeline.WithDPI(c.DPI),
		pipeline.WithColorMode(color),
		pipeline.WithMode(mode),
		pipeline.WithLanguage(c.Language),
		pipeline.WithWorkers(c.Workers),
	}, nil
}

// MissingTools lists the external binaries the CLI engine needs but cannot find.
func MissingTools(c common.OCRConfig) []string {
	tools := []string{c.Pdftoppm}
	if c.Engine == "tesseract" {
		tools = append(tools, c.Tesseract)
	}
	var missing []string
	for _, t := range tools {
		if t == "" {
			continue
		}
		if _, err := exec.LookPath(t); err != nil {
			missing = append(missing, t)
		}
	}
	return missing
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/pageocr/internal/app"
	"github.com/joseph-ayodele/pageocr/internal/common"
	"github.com/joseph-ayodele/pageocr/internal/ocr"
	"github.com/joseph-ayodele/pageocr/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build OCR stack", "error", err, "engines", ocr.Engines())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(a.Service, a.Exporter, cfg.Server, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var healthServer *server.HealthServer
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		healthServer = server.NewHealthServer(logger)
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pageocr listening",
			"addr", cfg.Server.HTTPAddr,
			"engine", cfg.OCR.Engine,
			"mode", cfg.Pipeline.Mode,
			"dpi", cfg.Pipeline.DPI,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("http serve error", "error", err)
		exitCode = 1
	}

	if healthServer != nil {
		healthServer.SetNotServing()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
		exitCode = 1
	}
	if healthServer != nil {
		healthServer.Stop()
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

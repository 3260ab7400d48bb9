// Command extract runs the bulletin extraction batch: it optionally splits
// full-page scans into map crops, then turns every map image into a per-date
// bulletin JSON file using the vision inference service. Runs are resumable;
// rerunning after a crash only processes the images without a bulletin.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/meteoburkina/bulletin-etl/internal/adapter/http"
	"github.com/meteoburkina/bulletin-etl/internal/adapter/ollama"
	"github.com/meteoburkina/bulletin-etl/internal/config"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
	"github.com/meteoburkina/bulletin-etl/internal/pipeline"
	"github.com/meteoburkina/bulletin-etl/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cities, err := registry.Load(cfg.CitiesFile)
	if err != nil {
		logger.Error("failed to load city registry", "path", cfg.CitiesFile, "error", err)
		os.Exit(1)
	}
	logger.Info("city registry loaded", "path", cfg.CitiesFile, "cities", len(cities))

	client := ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel, cfg.InferenceTimeout, logger)
	extractor := pipeline.NewExtractor(client, logger, metrics, pipeline.ExtractorOptions{
		CropHalfSize:   cfg.CropHalfSize,
		LegendFraction: cfg.LegendFraction,
		DetectIcons:    cfg.DetectIcons,
	})
	assembler := pipeline.NewAssembler(extractor, cities, logger, metrics, cfg.InferenceConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, assembler, assembler, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	if cfg.PagesRoot != "" {
		crops, err := pipeline.PreparePages(cfg.PagesRoot, cfg.MapsRoot, logger)
		if err != nil {
			logger.Error("page cropping failed", "error", err)
			os.Exit(1)
		}
		logger.Info("pages prepared", "crops_written", crops)
	}

	summary, err := assembler.Run(ctx, cfg.MapsRoot, cfg.BulletinsRoot)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}

	logger.Info("batch finished",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"detection_failures", summary.DetectionFailures,
		"decode_failures", summary.DecodeFailures,
		"degraded_readings", summary.DegradedReadings,
		"bulletins_written", summary.BulletinsWritten,
	)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
}

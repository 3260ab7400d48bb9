// Command merge joins the per-map bulletin files into one merged report per
// date, then optionally prunes empty stations and rebuilds the corpus
// dataset.
//
// Usage:
//
//	go run ./cmd/merge \
//	  -cities data/cities.json \
//	  -in data/bulletins \
//	  -out data/merged \
//	  -corpus data/corpus.json
package main

import (
	"context"
	"flag"
	"os"

	"github.com/meteoburkina/bulletin-etl/internal/adapter/mapbox"
	"github.com/meteoburkina/bulletin-etl/internal/config"
	"github.com/meteoburkina/bulletin-etl/internal/domain"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
	"github.com/meteoburkina/bulletin-etl/internal/pipeline"
	"github.com/meteoburkina/bulletin-etl/internal/registry"
)

func main() {
	var (
		citiesFile      = flag.String("cities", "data/cities.json", "city registry JSON")
		bulletinsRoot   = flag.String("in", "data/bulletins", "per-map bulletin tree")
		mergedRoot      = flag.String("out", "data/merged", "merged report output tree")
		corpusFile      = flag.String("corpus", "", "write the corpus dataset here (empty skips aggregation)")
		prune           = flag.Bool("prune", false, "drop stations with no temperatures before aggregating")
		dryRun          = flag.Bool("dry-run", false, "with -prune, only report what would change")
		allowDuplicates = flag.Bool("allow-duplicates", false, "resolve duplicate corpus dates last-wins instead of failing")
		logLevel        = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := observability.NewLogger(*logLevel, "text")

	cities, err := registry.Load(*citiesFile)
	if err != nil {
		logger.Error("failed to load city registry", "path", *citiesFile, "error", err)
		os.Exit(1)
	}

	// Backfill missing registry coordinates (feature-flagged via
	// MAPBOX_ENABLED / MAPBOX_TOKEN).
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger)
		geocoder := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize)

		var failures int
		cities, failures = domain.FillCoordinates(context.Background(), cities, geocoder, "Burkina Faso")
		logger.Info("registry coordinates backfilled", "lookup_failures", failures)
	}

	merger := pipeline.NewMerger(cities, logger)
	written, err := merger.MergeTree(*bulletinsRoot, *mergedRoot)
	if err != nil {
		logger.Error("merge failed", "error", err)
		os.Exit(1)
	}
	logger.Info("merge finished", "reports_written", written)

	aggregator := pipeline.NewAggregator(logger)

	if *prune {
		files, dropped, err := aggregator.PruneTree(*mergedRoot, *dryRun)
		if err != nil {
			logger.Error("prune failed", "error", err)
			os.Exit(1)
		}
		logger.Info("prune finished", "files_changed", files, "stations_dropped", dropped, "dry_run", *dryRun)
	}

	if *corpusFile == "" {
		return
	}
	dataset, err := aggregator.AggregateCorpus(*mergedRoot, *allowDuplicates)
	if err != nil {
		logger.Error("corpus aggregation failed", "error", err)
		os.Exit(1)
	}
	if err := aggregator.WriteCorpus(*corpusFile, dataset); err != nil {
		logger.Error("corpus write failed", "error", err)
		os.Exit(1)
	}
}

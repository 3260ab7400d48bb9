// Command publish reads a corpus dataset file and produces its bulletins to
// the Kafka sink topic, one message per date. The import mode travels as a
// message header telling downstream importers how to treat dates they
// already hold.
//
// Usage:
//
//	go run ./cmd/publish -corpus data/corpus.json -mode replace
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/meteoburkina/bulletin-etl/internal/adapter/kafka"
	"github.com/meteoburkina/bulletin-etl/internal/config"
	"github.com/meteoburkina/bulletin-etl/internal/domain"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
)

func main() {
	var (
		corpusFile = flag.String("corpus", "data/corpus.json", "corpus dataset file")
		modeFlag   = flag.String("mode", "replace", "import mode: replace or reject")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := observability.NewLogger(*logLevel, "text")

	mode, err := kafkaadapter.ParseImportMode(*modeFlag)
	if err != nil {
		logger.Error("invalid mode", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*corpusFile)
	if err != nil {
		logger.Error("failed to read corpus", "path", *corpusFile, "error", err)
		os.Exit(1)
	}
	var dataset domain.CorpusDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		logger.Error("failed to parse corpus", "path", *corpusFile, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}()

	if err := publisher.PublishCorpus(ctx, dataset, mode); err != nil {
		logger.Error("publish failed", "error", err)
		os.Exit(1)
	}
}

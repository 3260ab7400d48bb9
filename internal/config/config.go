package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
// A .env file in the working directory is loaded first when present.
type Config struct {
	// Batch layout.
	CitiesFile    string // city registry JSON
	PagesRoot     string // full-page scans to pre-crop (optional)
	MapsRoot      string // map images to extract
	BulletinsRoot string // per-image bulletin output tree
	MergedRoot    string // per-date merged output tree
	CorpusFile    string // aggregated corpus dataset

	// Inference service.
	OllamaURL            string
	OllamaModel          string
	InferenceTimeout     time.Duration
	InferenceConcurrency int
	DetectIcons          bool
	CropHalfSize         int
	LegendFraction       float64

	// Observability.
	HTTPAddr        string // empty disables the metrics server
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Corpus publishing.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Registry coordinate backfill (feature-flagged).
	MapboxEnabled   bool
	MapboxToken     string
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	inferenceTimeout, err := parseDuration("INFERENCE_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	concurrency, err := parseInt("INFERENCE_CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}
	cropHalf, err := parseInt("CROP_HALF_SIZE", 80)
	if err != nil {
		return nil, err
	}
	legendFraction, err := parseFloat("LEGEND_FRACTION", 0.30)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := parseInt("MAPBOX_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CitiesFile:    envOrDefault("CITIES_FILE", "cities_rel.json"),
		PagesRoot:     os.Getenv("PAGES_ROOT"),
		MapsRoot:      envOrDefault("MAPS_ROOT", "maps"),
		BulletinsRoot: envOrDefault("BULLETINS_ROOT", "bulletins"),
		MergedRoot:    envOrDefault("MERGED_ROOT", "merged"),
		CorpusFile:    envOrDefault("CORPUS_FILE", "data/all_merged.json"),

		OllamaURL:            envOrDefault("OLLAMA_URL", "http://localhost:11434/api/generate"),
		OllamaModel:          envOrDefault("OLLAMA_MODEL", "qwen3-vl:8b"),
		InferenceTimeout:     inferenceTimeout,
		InferenceConcurrency: concurrency,
		DetectIcons:          envOrDefault("DETECT_ICONS", "true") == "true",
		CropHalfSize:         cropHalf,
		LegendFraction:       legendFraction,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "merged-weather-bulletins"),

		MapboxEnabled:   os.Getenv("MAPBOX_ENABLED") == "true",
		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if cfg.CitiesFile == "" {
		return nil, errors.New("CITIES_FILE is required")
	}
	if cfg.MapsRoot == "" {
		return nil, errors.New("MAPS_ROOT is required")
	}
	if cfg.InferenceTimeout <= 0 {
		return nil, errors.New("INFERENCE_TIMEOUT must be positive")
	}
	if cfg.InferenceConcurrency < 1 {
		return nil, errors.New("INFERENCE_CONCURRENCY must be at least 1")
	}
	if cfg.CropHalfSize < 1 {
		return nil, errors.New("CROP_HALF_SIZE must be at least 1")
	}
	if cfg.LegendFraction <= 0 || cfg.LegendFraction >= 1 {
		return nil, errors.New("LEGEND_FRACTION must be in (0, 1)")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_TOKEN is required when MAPBOX_ENABLED=true")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

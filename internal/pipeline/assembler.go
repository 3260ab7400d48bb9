package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
	"github.com/meteoburkina/bulletin-etl/internal/imaging"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
)

// RunSummary counts what a batch run did. Degraded readings are stations
// whose temperatures all came back null.
type RunSummary struct {
	Processed         int
	Skipped           int
	DetectionFailures int
	DecodeFailures    int
	DegradedReadings  int
	BulletinsWritten  int
}

// Assembler turns a directory of scanned map images into per-map bulletin
// files. Runs are resumable: an image whose bulletin already exists on disk
// is skipped, so a crashed batch picks up where it stopped.
type Assembler struct {
	extractor   *Extractor
	cities      []domain.CityEntry
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int

	ready atomic.Bool

	mu      sync.Mutex
	summary RunSummary
}

// NewAssembler creates an Assembler over a fixed city registry. Concurrency
// bounds the in-flight inference calls per image.
func NewAssembler(extractor *Extractor, cities []domain.CityEntry, logger *slog.Logger, metrics *observability.Metrics, concurrency int) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Assembler{
		extractor:   extractor,
		cities:      cities,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// CheckReadiness reports whether the assembler has started its batch. Wired
// into the readiness endpoint.
func (a *Assembler) CheckReadiness(ctx context.Context) error {
	if !a.ready.Load() {
		return fmt.Errorf("batch not started")
	}
	return nil
}

// Summary returns a snapshot of the running (or finished) batch counters.
// Safe to call from the status endpoint while Run is in flight.
func (a *Assembler) Summary() RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}

func (a *Assembler) bump(update func(*RunSummary)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	update(&a.summary)
}

// Run processes every map image under mapsRoot and writes bulletins under
// bulletinsRoot. Images are processed in date order so a partial run leaves
// the oldest gap, and per-image failures never abort the batch.
func (a *Assembler) Run(ctx context.Context, mapsRoot, bulletinsRoot string) (RunSummary, error) {
	a.bump(func(s *RunSummary) { *s = RunSummary{} })

	images, err := listMapImages(mapsRoot)
	if err != nil {
		return a.Summary(), fmt.Errorf("listing map images: %w", err)
	}
	if err := os.MkdirAll(bulletinsRoot, 0o755); err != nil {
		return a.Summary(), fmt.Errorf("creating bulletins dir: %w", err)
	}

	a.ready.Store(true)
	a.metrics.BatchRunning.Set(1)
	defer a.metrics.BatchRunning.Set(0)

	a.logger.Info("batch starting", "images", len(images), "cities", len(a.cities))

	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return a.Summary(), err
		}
		a.processImage(ctx, img, bulletinsRoot)
	}
	return a.Summary(), nil
}

type mapImage struct {
	path   string
	relDir string // directory relative to the maps root, mirrored in output
	meta   domain.MapFileMeta
}

// listMapImages collects the raster files under root, oldest bulletin first.
// Files without a recognizable date sort before everything else so they
// surface early in logs.
func listMapImages(root string) ([]mapImage, error) {
	var images []mapImage
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg":
		default:
			return nil
		}
		relDir, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		images = append(images, mapImage{
			path:   path,
			relDir: relDir,
			meta:   domain.ParseMapFilename(filepath.Base(path)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if a.meta.DateParsed != b.meta.DateParsed {
			return !a.meta.DateParsed
		}
		if a.meta.DateParsed && a.meta.Date != b.meta.Date {
			return a.meta.Date < b.meta.Date
		}
		return a.path < b.path
	})
	return images, nil
}

func (a *Assembler) processImage(ctx context.Context, mi mapImage, bulletinsRoot string) {
	logger := a.logger.With("image", filepath.Base(mi.path), "date", mi.meta.Date, "kind", mi.meta.Kind)

	outDir := filepath.Join(bulletinsRoot, mi.relDir)
	outPath := filepath.Join(outDir, bulletinFilename(mi.meta))
	if _, err := os.Stat(outPath); err == nil {
		logger.Info("bulletin exists, skipping", "output", outPath)
		a.bump(func(s *RunSummary) { s.Skipped++ })
		a.metrics.ImagesSkipped.Inc()
		return
	}

	start := time.Now()

	img, err := imaging.LoadImage(mi.path)
	if err != nil {
		logger.Error("decoding image failed", "error", err)
		a.bump(func(s *RunSummary) { s.DecodeFailures++ })
		return
	}

	box, err := imaging.Locate(img)
	if err != nil {
		logger.Error("map region not found", "error", err)
		a.bump(func(s *RunSummary) { s.DetectionFailures++ })
		a.metrics.MapDetectionFailures.Inc()
		return
	}
	logger.Debug("map region located", "x0", box.X0, "y0", box.Y0, "x1", box.X1, "y1", box.Y1)

	legend, allowed := a.extractor.ReadLegend(ctx, img)

	stations := a.extractStations(ctx, img, box, allowed)
	degraded := 0
	for _, s := range stations {
		if s.Tmin == nil && s.Tmax == nil {
			degraded++
			a.metrics.ReadingsDegraded.Inc()
		}
	}
	a.bump(func(s *RunSummary) { s.DegradedReadings += degraded })

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Error("creating output dir failed", "error", err)
		return
	}

	bulletin := domain.MapBulletin{
		Date:        mi.meta.Date,
		Kind:        mi.meta.Kind,
		SourceImage: filepath.Base(mi.path),
		Legend:      legend,
		Stations:    stations,
	}
	if err := writeJSON(outPath, bulletin); err != nil {
		logger.Error("writing bulletin failed", "error", err)
		return
	}

	a.bump(func(s *RunSummary) {
		s.Processed++
		s.BulletinsWritten++
	})
	a.metrics.ImagesProcessed.Inc()
	a.metrics.BulletinsWritten.Inc()
	a.metrics.ImageProcessingDuration.Observe(time.Since(start).Seconds())
	logger.Info("bulletin written", "output", outPath, "stations", len(stations), "duration", time.Since(start))
}

// extractStations fans the city list out over a bounded worker pool and
// reassembles results in registry order, so bulletins are byte-stable across
// runs regardless of scheduling.
func (a *Assembler) extractStations(ctx context.Context, img image.Image, box domain.BoundingBox, allowed []string) []domain.StationReading {
	readings := make([]domain.StationReading, len(a.cities))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i, city := range a.cities {
		wg.Add(1)
		go func(i int, city domain.CityEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			x, y := domain.ProjectCity(box, city)
			readings[i] = a.extractor.ExtractStation(ctx, img, city.Name, x, y, allowed)
		}(i, city)
	}
	wg.Wait()
	return readings
}

func bulletinFilename(meta domain.MapFileMeta) string {
	return fmt.Sprintf("%s_%s.json", meta.Date, meta.Kind)
}

// writeJSON writes v as indented JSON via a temp file rename, so a killed
// run never leaves a truncated bulletin that a resume would then skip.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

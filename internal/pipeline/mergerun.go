package pipeline

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
)

// Merger joins per-map bulletins into per-date merged reports.
type Merger struct {
	registry map[string]domain.CityEntry
	logger   *slog.Logger
}

func NewMerger(cities []domain.CityEntry, logger *slog.Logger) *Merger {
	return &Merger{registry: domain.IndexCities(cities), logger: logger}
}

// MergeTree pairs up the observed and forecast bulletins under bulletinsRoot
// by date and writes one merged report per date under mergedRoot. Dates with
// only one side still merge; the missing side's fields stay null. Bulletins
// with an unknown map kind are logged and left out. Returns the number of
// merged reports written.
func (m *Merger) MergeTree(bulletinsRoot, mergedRoot string) (int, error) {
	byDate := map[string]*[2]*domain.MapBulletin{}
	var dates []string

	err := filepath.WalkDir(bulletinsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		var b domain.MapBulletin
		if err := readJSON(path, &b); err != nil {
			m.logger.Warn("skipping unreadable bulletin", "path", path, "error", err)
			return nil
		}

		var side int
		switch b.Kind {
		case domain.KindObserved:
			side = 0
		case domain.KindForecast:
			side = 1
		default:
			m.logger.Warn("skipping bulletin with unknown map kind", "path", path, "kind", b.Kind)
			return nil
		}

		pair, ok := byDate[b.Date]
		if !ok {
			pair = &[2]*domain.MapBulletin{}
			byDate[b.Date] = pair
			dates = append(dates, b.Date)
		}
		if pair[side] != nil {
			m.logger.Warn("duplicate bulletin for date and kind, keeping first", "path", path, "date", b.Date, "kind", b.Kind)
			return nil
		}
		bulletin := b
		pair[side] = &bulletin
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking bulletins: %w", err)
	}

	if err := os.MkdirAll(mergedRoot, 0o755); err != nil {
		return 0, fmt.Errorf("creating merged dir: %w", err)
	}

	sort.Strings(dates)
	written := 0
	for _, date := range dates {
		pair := byDate[date]
		merged := domain.MergePair(date, pair[0], pair[1], m.registry)

		outPath := filepath.Join(mergedRoot, date+"_merged.json")
		if err := writeJSON(outPath, merged); err != nil {
			return written, fmt.Errorf("writing %s: %w", outPath, err)
		}
		written++
		m.logger.Info("merged report written", "date", date, "output", outPath,
			"observed", pair[0] != nil, "forecast", pair[1] != nil)
	}
	return written, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

package pipeline

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
)

// Aggregator collects merged reports into the single corpus dataset and
// handles the in-place station pruning pass.
type Aggregator struct {
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// AggregateCorpus reads every merged report under mergedRoot and builds the
// corpus dataset. Unreadable files are logged and skipped rather than
// failing the corpus; a duplicate bulletin date fails unless allowDuplicates
// resolves it last-wins.
func (g *Aggregator) AggregateCorpus(mergedRoot string, allowDuplicates bool) (domain.CorpusDataset, error) {
	var entries []domain.CorpusBulletin

	err := filepath.WalkDir(mergedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, "_merged.json") {
			return nil
		}

		var merged domain.MergedBulletin
		if err := readJSON(path, &merged); err != nil {
			g.logger.Warn("skipping unreadable merged report", "path", path, "error", err)
			return nil
		}
		// Keep the path relative to the merged root so provenance stays
		// unambiguous when subdirectories carry same-named reports.
		rel, relErr := filepath.Rel(mergedRoot, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		entries = append(entries, domain.CorpusBulletin{
			MergedBulletin: merged,
			SourceFile:     filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return domain.CorpusDataset{}, fmt.Errorf("walking merged reports: %w", err)
	}

	dataset, err := domain.BuildCorpus(entries, allowDuplicates)
	if err != nil {
		return domain.CorpusDataset{}, err
	}
	g.logger.Info("corpus assembled", "bulletins", dataset.BulletinCount)
	return dataset, nil
}

// WriteCorpus persists the dataset to path.
func (g *Aggregator) WriteCorpus(path string, dataset domain.CorpusDataset) error {
	if err := writeJSON(path, dataset); err != nil {
		return fmt.Errorf("writing corpus: %w", err)
	}
	g.logger.Info("corpus written", "path", path, "bulletins", dataset.BulletinCount)
	return nil
}

// PruneTree drops stations with no temperature signal from every merged
// report under mergedRoot, rewriting files in place. With dryRun set it only
// reports what would change. Returns the number of files that changed (or
// would change) and the total stations dropped.
func (g *Aggregator) PruneTree(mergedRoot string, dryRun bool) (filesChanged, stationsDropped int, err error) {
	err = filepath.WalkDir(mergedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, "_merged.json") {
			return nil
		}

		var merged domain.MergedBulletin
		if err := readJSON(path, &merged); err != nil {
			g.logger.Warn("skipping unreadable merged report", "path", path, "error", err)
			return nil
		}

		pruned, dropped := domain.PruneEmptyStations(merged)
		if dropped == 0 {
			return nil
		}
		filesChanged++
		stationsDropped += dropped

		if dryRun {
			g.logger.Info("would prune stations", "path", path, "dropped", dropped)
			return nil
		}
		if err := writeJSON(path, pruned); err != nil {
			return fmt.Errorf("rewriting %s: %w", path, err)
		}
		g.logger.Info("pruned stations", "path", path, "dropped", dropped)
		return nil
	})
	return filesChanged, stationsDropped, err
}

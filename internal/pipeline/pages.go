package pipeline

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meteoburkina/bulletin-etl/internal/imaging"
)

// PreparePages splits full bulletin page scans into their two map crops and
// drops them under mapsRoot with the usual _map1/_map2 markers, so the
// extraction batch picks them up like any hand-cropped image. Pages whose
// crops both exist already are skipped. Returns the number of crops written.
func PreparePages(pagesRoot, mapsRoot string, logger *slog.Logger) (int, error) {
	if err := os.MkdirAll(mapsRoot, 0o755); err != nil {
		return 0, fmt.Errorf("creating maps dir: %w", err)
	}

	written := 0
	err := filepath.WalkDir(pagesRoot, func(path string, d fs.DirEntry, err error) error {
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

		base := filepath.Base(path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		observedPath := filepath.Join(mapsRoot, stem+"_map1.png")
		forecastPath := filepath.Join(mapsRoot, stem+"_map2.png")

		if fileExists(observedPath) && fileExists(forecastPath) {
			logger.Debug("page already cropped, skipping", "page", base)
			return nil
		}

		page, err := imaging.LoadImage(path)
		if err != nil {
			logger.Warn("skipping undecodable page", "page", base, "error", err)
			return nil
		}

		observed, forecast := imaging.CropPageMaps(page)
		if err := imaging.SavePNG(observedPath, observed); err != nil {
			return fmt.Errorf("writing %s: %w", observedPath, err)
		}
		if err := imaging.SavePNG(forecastPath, forecast); err != nil {
			return fmt.Errorf("writing %s: %w", forecastPath, err)
		}
		written += 2
		logger.Info("page cropped", "page", base)
		return nil
	})
	return written, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

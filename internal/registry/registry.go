// Package registry loads the city registry: the ordered list of known
// stations with their relative map coordinates. The registry is the one input
// the batch cannot run without, so loading is strict: a missing file, bad
// JSON, or an out-of-range coordinate aborts before any image is touched.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
)

var validate = validator.New()

// Load reads and validates the registry file. The returned slice preserves
// file order, which is also the order stations appear in every bulletin.
func Load(path string) ([]domain.CityEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city registry: %w", err)
	}

	var entries []domain.CityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse city registry %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("city registry %s is empty", path)
	}

	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("city registry %s entry %d (%q): %w", path, i, e.Name, err)
		}
	}

	return entries, nil
}

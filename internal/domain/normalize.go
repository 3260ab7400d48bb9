package domain

import "strings"

// NormalizeCityName produces the join key used to match stations across the
// observed and forecast extractions and against the registry: leading and
// trailing space trimmed, internal whitespace runs collapsed to one space,
// upper-cased.
func NormalizeCityName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// IndexCities maps normalized names to registry entries. Later duplicates
// win.
func IndexCities(entries []CityEntry) map[string]CityEntry {
	byName := make(map[string]CityEntry, len(entries))
	for _, e := range entries {
		key := NormalizeCityName(e.Name)
		if key == "" {
			continue
		}
		byName[key] = e
	}
	return byName
}

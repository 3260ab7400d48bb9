package domain

import (
	"sort"
	"strings"
)

// MergePair joins one date's observed and forecast bulletins into a single
// merged document. Either side may be nil: a city present on only one side
// still yields a full report with the other side's fields null (temperatures)
// or "" (condition text). Iteration covers the sorted union of normalized
// names seen on either side; geographic coordinates come from the registry
// index, keyed the same way.
func MergePair(date string, obs, prev *MapBulletin, registry map[string]CityEntry) MergedBulletin {
	obsByName := indexStations(obs)
	prevByName := indexStations(prev)

	keys := make([]string, 0, len(obsByName)+len(prevByName))
	seen := make(map[string]bool, len(obsByName)+len(prevByName))
	for key := range obsByName {
		keys = append(keys, key)
		seen[key] = true
	}
	for key := range prevByName {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	merged := MergedBulletin{
		Date:     date,
		Stations: make([]MergedStationReport, 0, len(keys)),
	}

	for _, key := range keys {
		o, hasObs := obsByName[key]
		p, hasPrev := prevByName[key]

		report := MergedStationReport{Name: displayName(key, o, hasObs, p, hasPrev)}

		if hasObs {
			report.TminObs = o.Tmin
			report.TmaxObs = o.Tmax
			if o.Icon != nil {
				report.TempsObs = *o.Icon
			}
		}
		if hasPrev {
			report.TminPrev = p.Tmin
			report.TmaxPrev = p.Tmax
			if p.Icon != nil {
				report.TempsPrev = *p.Icon
			}
		}

		if meta, ok := registry[key]; ok {
			report.Latitude = meta.Latitude
			report.Longitude = meta.Longitude
		}

		merged.Stations = append(merged.Stations, report)
	}

	return merged
}

func indexStations(b *MapBulletin) map[string]StationReading {
	if b == nil {
		return nil
	}
	byName := make(map[string]StationReading, len(b.Stations))
	for _, s := range b.Stations {
		key := NormalizeCityName(s.Name)
		if key == "" {
			continue
		}
		byName[key] = s
	}
	return byName
}

// displayName prefers the observed side's trimmed spelling, then the
// forecast side's, then the normalized key itself.
func displayName(key string, o StationReading, hasObs bool, p StationReading, hasPrev bool) string {
	if hasObs && strings.TrimSpace(o.Name) != "" {
		return strings.TrimSpace(o.Name)
	}
	if hasPrev && strings.TrimSpace(p.Name) != "" {
		return strings.TrimSpace(p.Name)
	}
	return key
}

// PruneEmptyStations removes reports carrying no temperature signal at all.
// Returns the pruned bulletin and the number of dropped stations.
func PruneEmptyStations(b MergedBulletin) (MergedBulletin, int) {
	kept := make([]MergedStationReport, 0, len(b.Stations))
	dropped := 0
	for _, s := range b.Stations {
		if !s.HasSignal() {
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	b.Stations = kept
	return b, dropped
}

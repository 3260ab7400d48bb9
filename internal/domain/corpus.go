package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrDuplicateDate is returned by BuildCorpus when two merged files claim the
// same bulletin date and the caller did not opt into last-wins resolution.
var ErrDuplicateDate = errors.New("duplicate bulletin date")

// SortCorpusBulletins orders bulletins by parsed date ascending. Bulletins
// whose date does not parse sort first, ordered among themselves by source
// path so the result is deterministic either way.
func SortCorpusBulletins(entries []CorpusBulletin) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, oki := ParseBulletinDate(entries[i].Date)
		tj, okj := ParseBulletinDate(entries[j].Date)
		if oki != okj {
			return !oki // unparseable first
		}
		if !oki {
			return entries[i].SourceFile < entries[j].SourceFile
		}
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return entries[i].SourceFile < entries[j].SourceFile
	})
}

// BuildCorpus assembles the corpus dataset from the collected merged
// bulletins. Dates must be unique: a collision is an error naming every
// source involved, unless allowDuplicates is set, in which case the
// last-sorted bulletin wins for its date. The entries slice is sorted in
// place.
func BuildCorpus(entries []CorpusBulletin, allowDuplicates bool) (CorpusDataset, error) {
	SortCorpusBulletins(entries)

	if dupes := duplicateDates(entries); len(dupes) > 0 {
		if !allowDuplicates {
			return CorpusDataset{}, fmt.Errorf("%w: %s", ErrDuplicateDate, strings.Join(dupes, "; "))
		}
		entries = lastPerDate(entries)
	}

	return CorpusDataset{
		GeneratedAt:   clock.Now().UTC().Format(time.RFC3339),
		BulletinCount: len(entries),
		Bulletins:     entries,
	}, nil
}

// duplicateDates describes every date claimed by more than one bulletin,
// listing the colliding source files.
func duplicateDates(entries []CorpusBulletin) []string {
	sources := make(map[string][]string)
	order := make([]string, 0)
	for _, e := range entries {
		if len(sources[e.Date]) == 0 {
			order = append(order, e.Date)
		}
		sources[e.Date] = append(sources[e.Date], e.SourceFile)
	}

	var dupes []string
	for _, date := range order {
		if files := sources[date]; len(files) > 1 {
			dupes = append(dupes, fmt.Sprintf("%s (%s)", date, strings.Join(files, ", ")))
		}
	}
	return dupes
}

// lastPerDate keeps the last-sorted bulletin for each date, preserving the
// overall sort order.
func lastPerDate(entries []CorpusBulletin) []CorpusBulletin {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		last[e.Date] = i
	}
	kept := make([]CorpusBulletin, 0, len(last))
	for i, e := range entries {
		if last[e.Date] == i {
			kept = append(kept, e)
		}
	}
	return kept
}

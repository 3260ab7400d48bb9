package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// isoDateRe matches an ISO-style date embedded in a filename with any
	// non-digit separators, e.g. "bulletin_2024-05-12_map1.png".
	isoDateRe = regexp.MustCompile(`(20\d{2})[^\d]([01]\d)[^\d]([0-3]\d)`)

	// frenchDateRe matches spelled-out French dates, e.g. "12 mai 2024".
	frenchDateRe = regexp.MustCompile(`(?i)(\d{1,2})\s+([a-zéêàûîôùëï]+)\s+(20\d{2})`)
)

var frenchMonths = map[string]time.Month{
	"janvier": time.January, "fevrier": time.February, "mars": time.March,
	"avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "aout": time.August, "septembre": time.September,
	"octobre": time.October, "novembre": time.November, "decembre": time.December,
}

// MapFileMeta is the metadata a map image filename encodes.
type MapFileMeta struct {
	Date string  // ISO "YYYY-MM-DD", or the bare stem when unparseable
	Kind MapKind // observed (_map1), forecast (_map2), or unknown

	// DateParsed is false when no date could be recovered and Date fell
	// back to the filename stem.
	DateParsed bool
}

// ParseMapFilename infers (date, kind) from a map image filename. The date is
// an ISO substring when present, otherwise a spelled-out French date; when
// neither parses, the stem itself stands in as the date so outputs still get
// a stable, unique key. The kind comes from the "_map1"/"_map2" marker.
func ParseMapFilename(name string) MapFileMeta {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	meta := MapFileMeta{Kind: inferMapKind(stem)}

	if m := isoDateRe.FindStringSubmatch(base); m != nil {
		meta.Date = fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
		meta.DateParsed = true
		return meta
	}
	if d, ok := parseFrenchDate(base); ok {
		meta.Date = d.Format("2006-01-02")
		meta.DateParsed = true
		return meta
	}

	meta.Date = stem
	return meta
}

func inferMapKind(stem string) MapKind {
	switch {
	case strings.Contains(stem, "_map1"):
		return KindObserved
	case strings.Contains(stem, "_map2"):
		return KindForecast
	default:
		return KindUnknown
	}
}

// parseFrenchDate reads dates like "12 mai 2024". Accents are stripped before
// the month lookup so "février"/"août" resolve too.
func parseFrenchDate(s string) (time.Time, bool) {
	m := frenchDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := frenchMonths[foldLabel(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// ParseBulletinDate parses an ISO "YYYY-MM-DD" bulletin date. Used by the
// corpus sort; unparseable dates sort first.
func ParseBulletinDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The closed weather-category vocabulary. These are the exact strings
// persisted in bulletin and merged files; anything else is rejected.
const (
	IconThunderstormRain = "pluie orageuse isolé"
	IconThunderstorm     = "orage isolé"
	IconRain             = "pluie isolée"
	IconPartlyCloudy     = "temps partiellement nuageux"
	IconOvercast         = "ciel couvert"
	IconClearSky         = "ciel degagé"
	IconDustSuspension   = "pousiere en suspension"
)

// CanonicalIcons returns the full vocabulary in its fixed order. The slice is
// a fresh copy each call so callers can reorder it freely.
func CanonicalIcons() []string {
	return []string{
		IconThunderstormRain,
		IconThunderstorm,
		IconRain,
		IconPartlyCloudy,
		IconOvercast,
		IconClearSky,
		IconDustSuspension,
	}
}

// stripAccents removes combining marks: "dégagé" -> "degage".
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return folded
}

// CanonicalizeIcon reduces free legend or map text to one of the canonical
// categories. Matching is case-insensitive, accent-stripped, substring-based,
// and ordered: the rain+storm test must run before the plain rain and plain
// storm tests, otherwise "pluie orageuse" would collapse to a single-root
// category. Returns ok=false for text matching no rule; out-of-vocabulary
// labels are never coerced to a nearby category.
func CanonicalizeIcon(raw string) (string, bool) {
	s := foldLabel(raw)
	if s == "" {
		return "", false
	}

	switch {
	case strings.Contains(s, "poussi"):
		return IconDustSuspension, true
	case strings.Contains(s, "plui") && strings.Contains(s, "orag"):
		return IconThunderstormRain, true
	case strings.Contains(s, "orag"):
		return IconThunderstorm, true
	case strings.Contains(s, "plui"):
		return IconRain, true
	case strings.Contains(s, "couvert"):
		return IconOvercast, true
	case strings.Contains(s, "nuag"):
		return IconPartlyCloudy, true
	case strings.Contains(s, "degage"), strings.Contains(s, "ensole"):
		return IconClearSky, true
	default:
		return "", false
	}
}

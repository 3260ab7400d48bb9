// Package domain models the data produced by the Burkina Faso weather-bulletin
// extraction pipeline.
//
// # Data Source
//
// The national weather service publishes a daily bulletin as a scanned PDF.
// Each bulletin page carries two map drawings of the country: map 1 shows the
// observed temperatures and conditions of the last 24 hours, map 2 shows the
// forecast for the next day. Upstream steps rasterize the pages and crop the
// two maps into standalone images named after the bulletin date, e.g.
// "2024-05-12_map1.png" (observed) and "2024-05-12_map2.png" (forecast).
//
// # City positions
//
// Station positions are stored as fractions of the detected map drawing, not
// as absolute pixels: x_rel and y_rel in [0,1] relative to the map's bounding
// box. Scans vary in resolution and margins, so the bounding box is detected
// per image and the relative coordinates are projected into it each time. See
// [ProjectCity].
//
// # Weather categories
//
// Persisted weather conditions come from a closed vocabulary of seven French
// legend labels (see [CanonicalIcons]). Free text read off a map is reduced to
// one of them by [CanonicalizeIcon] using ordered substring rules; text that
// matches no rule is rejected rather than mapped to a nearby category.
//
// # Join key
//
// Station identity across the observed and forecast extractions, and against
// the city registry, is the normalized name: trimmed, upper-cased, with
// internal whitespace collapsed. See [NormalizeCityName].
//
// # Bulletin files
//
// One JSON file is written per processed map image, keyed by (date, kind).
// The file's existence is the resume signal: a rerun skips images whose
// output already exists, so reprocessing a date requires deleting its file.
// Merged per-date files and the final corpus document are pure functions of
// their inputs and may be regenerated freely.
package domain

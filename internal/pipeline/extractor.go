package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
	"github.com/meteoburkina/bulletin-etl/internal/imaging"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
)

// Temperatures outside this range are scan-reading artifacts, not weather.
const (
	minTemp = -5
	maxTemp = 60
)

// Extractor reads stations off one map image: the legend once, then a small
// crop per city. Every inference failure degrades the affected reading to
// nulls; nothing here is fatal to a batch.
type Extractor struct {
	inferrer domain.Inferrer
	logger   *slog.Logger
	metrics  *observability.Metrics

	cropHalfSize   int
	legendFraction float64
	detectIcons    bool
}

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	CropHalfSize   int     // half-side of the per-city crop window, in pixels
	LegendFraction float64 // bottom fraction of the image holding the legend
	DetectIcons    bool    // also read the weather icon per city
}

// NewExtractor creates an Extractor over the given inference boundary.
func NewExtractor(inferrer domain.Inferrer, logger *slog.Logger, metrics *observability.Metrics, opts ExtractorOptions) *Extractor {
	return &Extractor{
		inferrer:       inferrer,
		logger:         logger,
		metrics:        metrics,
		cropHalfSize:   opts.CropHalfSize,
		legendFraction: opts.LegendFraction,
		detectIcons:    opts.DetectIcons,
	}
}

const legendPrompt = `You see the legend of a weather map (Burkina Faso).

Your only job:
- Read the FRENCH text labels of each weather icon, exactly as they appear.
- Do NOT interpret, only transcribe the legend texts.

Return ONLY a JSON array like:
[
  {"icon": "icon1", "label": "Pluie orageuse isolée"},
  {"icon": "icon2", "label": "Ciel nuageux"},
  {"icon": "icon3", "label": "Ciel dégagé"}
]

If no legend is visible, return [].`

// ReadLegend transcribes the icon legend from the bottom band of the image
// and derives the allowed-icon set for this map: the canonical forms of the
// labels actually present, or the full vocabulary when the legend is missing,
// unreadable, or yields no canonical match. The raw legend mapping is kept
// for the bulletin record.
func (e *Extractor) ReadLegend(ctx context.Context, img image.Image) (legend map[string]string, allowed []string) {
	allowed = domain.CanonicalIcons()

	crop := imaging.CropBottom(img, e.legendFraction)
	pngBytes, err := imaging.EncodePNG(crop)
	if err != nil {
		e.logger.Warn("encode legend crop failed", "error", err)
		return nil, allowed
	}

	reply, err := e.infer(ctx, "legend", legendPrompt, pngBytes)
	if err != nil {
		e.logger.Warn("legend inference failed", "error", err)
		return nil, allowed
	}

	raw, ok := firstJSONArray(reply)
	if !ok {
		e.metrics.InferenceRequests.WithLabelValues("legend", "unparseable").Inc()
		e.logger.Warn("legend reply contains no JSON array", "reply_prefix", prefix(reply, 100))
		return nil, allowed
	}

	var items []struct {
		Icon  string `json:"icon"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		e.metrics.InferenceRequests.WithLabelValues("legend", "unparseable").Inc()
		e.logger.Warn("legend JSON did not parse", "error", err)
		return nil, allowed
	}

	legend = make(map[string]string, len(items))
	present := make(map[string]bool)
	for _, item := range items {
		if item.Icon == "" || item.Label == "" {
			continue
		}
		legend[item.Icon] = item.Label
		if canon, ok := domain.CanonicalizeIcon(item.Label); ok {
			present[canon] = true
		}
	}

	if len(legend) == 0 {
		return nil, allowed
	}
	if len(present) > 0 {
		allowed = make([]string, 0, len(present))
		for canon := range present {
			allowed = append(allowed, canon)
		}
		sort.Strings(allowed)
	}
	return legend, allowed
}

// ExtractStation reads one city's temperatures (and optionally its weather
// icon) from the crop centered on the projected coordinate. Cities projected
// off the usable image area yield an all-null reading without an inference
// call; so does every service or parse failure.
func (e *Extractor) ExtractStation(ctx context.Context, img image.Image, city string, x, y int, allowed []string) domain.StationReading {
	reading := domain.StationReading{Name: city}

	crop, ok := imaging.CropSquare(img, x, y, e.cropHalfSize)
	if !ok {
		e.logger.Debug("empty crop, city at image edge", "city", city, "x", x, "y", y)
		return reading
	}

	pngBytes, err := imaging.EncodePNG(crop)
	if err != nil {
		e.logger.Warn("encode city crop failed", "city", city, "error", err)
		return reading
	}

	prompt := temperaturePrompt(city)
	if e.detectIcons {
		prompt = temperatureIconPrompt(city, allowed)
	}

	reply, err := e.infer(ctx, "station", prompt, pngBytes)
	if err != nil {
		e.logger.Warn("station inference failed", "city", city, "error", err)
		return reading
	}

	raw, ok := firstJSONObject(reply)
	if !ok {
		e.metrics.InferenceRequests.WithLabelValues("station", "unparseable").Inc()
		e.logger.Warn("station reply contains no JSON object", "city", city, "reply_prefix", prefix(reply, 100))
		return reading
	}

	var parsed struct {
		Tmin        any `json:"tmin"`
		Tmax        any `json:"tmax"`
		WeatherIcon any `json:"weather_icon"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		e.metrics.InferenceRequests.WithLabelValues("station", "unparseable").Inc()
		e.logger.Warn("station JSON did not parse", "city", city, "error", err)
		return reading
	}

	reading.Tmin = cleanTemperature(parsed.Tmin)
	reading.Tmax = cleanTemperature(parsed.Tmax)
	if e.detectIcons {
		reading.Icon = cleanIcon(parsed.WeatherIcon, allowed)
	}
	return reading
}

// infer wraps the boundary call with duration and outcome metrics.
func (e *Extractor) infer(ctx context.Context, mode, prompt string, pngBytes []byte) (string, error) {
	start := time.Now()
	reply, err := e.inferrer.Infer(ctx, prompt, pngBytes)
	e.metrics.InferenceDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		e.metrics.InferenceRequests.WithLabelValues(mode, "error").Inc()
		return "", err
	}
	e.metrics.InferenceRequests.WithLabelValues(mode, "success").Inc()
	return reply, nil
}

// cleanTemperature coerces a JSON value to an integer within the valid
// range, or nil. The model returns numbers most of the time but is free to
// emit numeric strings.
func cleanTemperature(v any) *int {
	var t int
	switch val := v.(type) {
	case float64:
		t = int(val)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		t = n
	default:
		return nil
	}

	if t < minTemp || t > maxTemp {
		return nil
	}
	return &t
}

// cleanIcon canonicalizes a returned icon label and re-checks it against the
// allowed set for this map. Out-of-set results are discarded, never coerced.
func cleanIcon(v any, allowed []string) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	canon, ok := domain.CanonicalizeIcon(s)
	if !ok {
		return nil
	}
	for _, a := range allowed {
		if a == canon {
			return &canon
		}
	}
	return nil
}

func temperaturePrompt(city string) string {
	return fmt.Sprintf(`You are a precise OCR assistant for weather maps of Burkina Faso.

This image is a small crop around the city %q on a weather map.
Near the city name, there is a temperature range written like "25/39" (min/max in °C).

Your task:
- Read the temperature range for this city ONLY.
- If you see exactly "A/B", then tmin = A and tmax = B.
- If you see only one number (e.g. "37"), then tmin = tmax = 37.
- Temperatures are integers in °C and must be between %d and %d.
- If you cannot clearly read the value, return null for both.

Answer with valid JSON only, no extra text, in this format:
{
  "tmin": 25,
  "tmax": 39
}

If unreadable, answer:
{
  "tmin": null,
  "tmax": null
}`, city, minTemp, maxTemp)
}

func temperatureIconPrompt(city string, allowed []string) string {
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = strconv.Quote(a)
	}

	return fmt.Sprintf(`You are a very strict OCR assistant for weather maps of Burkina Faso.

This image is a small crop around the city %q on a weather map.

You ALREADY know the legend of this map.
The ONLY possible weather labels are in this list (FRENCH):

POSSIBLE_WEATHER = [%s]

Your tasks:
1. Read the temperature range near the city (format "A/B" for min/max, or single number).
2. Choose "weather_icon" as:
   - EXACTLY one of the strings from POSSIBLE_WEATHER, OR
   - null if you cannot clearly identify it.

RULES (VERY IMPORTANT):
- You MUST NOT invent any other label outside POSSIBLE_WEATHER.
- If you are not sure, set "weather_icon": null.
- Temperatures must be integers between %d and %d °C.

Return ONLY valid JSON like:
{
  "tmin": 25,
  "tmax": 39,
  "weather_icon": "ciel couvert"
}

If unreadable:
{
  "tmin": null,
  "tmax": null,
  "weather_icon": null
}`, city, strings.Join(quoted, ", "), minTemp, maxTemp)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
)

// fakeInferrer scripts replies per prompt and records every call.
type fakeInferrer struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeInferrer) Infer(ctx context.Context, prompt string, imagePNG []byte) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.reply(prompt)
}

func (f *fakeInferrer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func newTestExtractor(inf domain.Inferrer, detectIcons bool) *Extractor {
	return NewExtractor(inf, testLogger(), observability.NewMetricsForTesting(), ExtractorOptions{
		CropHalfSize:   80,
		LegendFraction: 0.30,
		DetectIcons:    detectIcons,
	})
}

func TestReadLegend(t *testing.T) {
	img := whiteImage(400, 400)

	t.Run("restricts allowed icons to legend labels", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `[
				{"icon": "icon1", "label": "Pluie orageuse isolée"},
				{"icon": "icon2", "label": "Ciel dégagé"}
			]`, nil
		}}
		e := newTestExtractor(inf, true)

		legend, allowed := e.ReadLegend(context.Background(), img)

		require.Equal(t, map[string]string{
			"icon1": "Pluie orageuse isolée",
			"icon2": "Ciel dégagé",
		}, legend)
		assert.Equal(t, []string{domain.IconClearSky, domain.IconThunderstormRain}, allowed)
	})

	t.Run("falls back to full vocabulary on inference error", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return "", errors.New("service down")
		}}
		e := newTestExtractor(inf, true)

		legend, allowed := e.ReadLegend(context.Background(), img)

		assert.Nil(t, legend)
		assert.Equal(t, domain.CanonicalIcons(), allowed)
	})

	t.Run("falls back to full vocabulary when reply has no array", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return "there is no legend visible here", nil
		}}
		e := newTestExtractor(inf, true)

		legend, allowed := e.ReadLegend(context.Background(), img)

		assert.Nil(t, legend)
		assert.Equal(t, domain.CanonicalIcons(), allowed)
	})

	t.Run("empty legend keeps full vocabulary", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return "[]", nil
		}}
		e := newTestExtractor(inf, true)

		legend, allowed := e.ReadLegend(context.Background(), img)

		assert.Nil(t, legend)
		assert.Equal(t, domain.CanonicalIcons(), allowed)
	})

	t.Run("unrecognized labels keep full vocabulary but preserve legend", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `[{"icon": "icon1", "label": "something illegible"}]`, nil
		}}
		e := newTestExtractor(inf, true)

		legend, allowed := e.ReadLegend(context.Background(), img)

		assert.Equal(t, map[string]string{"icon1": "something illegible"}, legend)
		assert.Equal(t, domain.CanonicalIcons(), allowed)
	})
}

func TestExtractStation(t *testing.T) {
	img := whiteImage(400, 400)
	allowed := domain.CanonicalIcons()

	t.Run("reads temperatures and icon", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `{"tmin": 25, "tmax": 39, "weather_icon": "Ciel dégagé"}`, nil
		}}
		e := newTestExtractor(inf, true)

		r := e.ExtractStation(context.Background(), img, "OUAGADOUGOU", 200, 200, allowed)

		require.NotNil(t, r.Tmin)
		require.NotNil(t, r.Tmax)
		require.NotNil(t, r.Icon)
		assert.Equal(t, "OUAGADOUGOU", r.Name)
		assert.Equal(t, 25, *r.Tmin)
		assert.Equal(t, 39, *r.Tmax)
		assert.Equal(t, domain.IconClearSky, *r.Icon)
	})

	t.Run("coerces numeric strings", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `{"tmin": "25", "tmax": " 39 "}`, nil
		}}
		e := newTestExtractor(inf, false)

		r := e.ExtractStation(context.Background(), img, "DORI", 200, 200, allowed)

		require.NotNil(t, r.Tmin)
		require.NotNil(t, r.Tmax)
		assert.Equal(t, 25, *r.Tmin)
		assert.Equal(t, 39, *r.Tmax)
	})

	t.Run("rejects out-of-range temperatures independently", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `{"tmin": -12, "tmax": 41}`, nil
		}}
		e := newTestExtractor(inf, false)

		r := e.ExtractStation(context.Background(), img, "DORI", 200, 200, allowed)

		assert.Nil(t, r.Tmin)
		require.NotNil(t, r.Tmax)
		assert.Equal(t, 41, *r.Tmax)
	})

	t.Run("discards icon outside allowed set", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `{"tmin": 25, "tmax": 39, "weather_icon": "ciel couvert"}`, nil
		}}
		e := newTestExtractor(inf, true)

		r := e.ExtractStation(context.Background(), img, "PO", 200, 200, []string{domain.IconClearSky})

		assert.Nil(t, r.Icon)
		require.NotNil(t, r.Tmin)
	})

	t.Run("degrades to nulls on inference failure", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return "", errors.New("timeout")
		}}
		e := newTestExtractor(inf, true)

		r := e.ExtractStation(context.Background(), img, "GAOUA", 200, 200, allowed)

		assert.Equal(t, domain.StationReading{Name: "GAOUA"}, r)
	})

	t.Run("degrades to nulls on garbage reply", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return "the image is too blurry to read", nil
		}}
		e := newTestExtractor(inf, true)

		r := e.ExtractStation(context.Background(), img, "GAOUA", 200, 200, allowed)

		assert.Equal(t, domain.StationReading{Name: "GAOUA"}, r)
	})

	t.Run("skips inference when crop falls outside the image", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			t.Fatal("inference should not be called")
			return "", nil
		}}
		e := newTestExtractor(inf, true)

		r := e.ExtractStation(context.Background(), img, "EDGE", -500, -500, allowed)

		assert.Equal(t, domain.StationReading{Name: "EDGE"}, r)
		assert.Equal(t, 0, inf.callCount())
	})

	t.Run("icon mode embeds the allowed list in the prompt", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `{"tmin": null, "tmax": null, "weather_icon": null}`, nil
		}}
		e := newTestExtractor(inf, true)

		e.ExtractStation(context.Background(), img, "BOBO DIOULASSO", 200, 200, []string{domain.IconOvercast})

		require.Equal(t, 1, inf.callCount())
		assert.Contains(t, inf.prompts[0], "POSSIBLE_WEATHER")
		assert.Contains(t, inf.prompts[0], domain.IconOvercast)
		assert.Contains(t, inf.prompts[0], "BOBO DIOULASSO")
	})

	t.Run("temperature-only mode never mentions icons", func(t *testing.T) {
		inf := &fakeInferrer{reply: func(string) (string, error) {
			return `{"tmin": 30, "tmax": 38}`, nil
		}}
		e := newTestExtractor(inf, false)

		r := e.ExtractStation(context.Background(), img, "FADA", 200, 200, allowed)

		require.Equal(t, 1, inf.callCount())
		assert.False(t, strings.Contains(inf.prompts[0], "weather_icon") &&
			strings.Contains(inf.prompts[0], "POSSIBLE_WEATHER"))
		assert.Nil(t, r.Icon)
		require.NotNil(t, r.Tmin)
	})
}

package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
	"github.com/meteoburkina/bulletin-etl/internal/imaging"
	"github.com/meteoburkina/bulletin-etl/internal/observability"
)

// testMapImage draws a dark rectangle on a white page, large enough for the
// map locator to accept it.
func testMapImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	dark := color.RGBA{30, 30, 30, 255}
	draw.Draw(img, image.Rect(40, 40, 360, 300), image.NewUniform(dark), image.Point{}, draw.Src)
	return img
}

func testCities() []domain.CityEntry {
	return []domain.CityEntry{
		{Name: "OUAGADOUGOU", XRel: 0.5, YRel: 0.4},
		{Name: "BOBO DIOULASSO", XRel: 0.2, YRel: 0.7},
	}
}

// stationInferrer answers the legend prompt with a two-icon legend and every
// station prompt with fixed temperatures.
func stationInferrer() *fakeInferrer {
	return &fakeInferrer{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "transcribe") {
			return `[{"icon": "icon1", "label": "Ciel dégagé"}, {"icon": "icon2", "label": "Ciel couvert"}]`, nil
		}
		return `{"tmin": 25, "tmax": 39, "weather_icon": "ciel dégagé"}`, nil
	}}
}

func newTestAssembler(inf domain.Inferrer) *Assembler {
	metrics := observability.NewMetricsForTesting()
	extractor := NewExtractor(inf, testLogger(), metrics, ExtractorOptions{
		CropHalfSize:   40,
		LegendFraction: 0.30,
		DetectIcons:    true,
	})
	return NewAssembler(extractor, testCities(), testLogger(), metrics, 2)
}

func TestAssemblerRun(t *testing.T) {
	mapsRoot := t.TempDir()
	bulletinsRoot := t.TempDir()

	img := testMapImage()
	require.NoError(t, imaging.SavePNG(filepath.Join(mapsRoot, "bulletin_2024-05-12_map1.png"), img))
	require.NoError(t, imaging.SavePNG(filepath.Join(mapsRoot, "bulletin_2024-05-12_map2.png"), img))

	inf := stationInferrer()
	a := newTestAssembler(inf)

	summary, err := a.Run(context.Background(), mapsRoot, bulletinsRoot)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.BulletinsWritten)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.DetectionFailures)

	var bulletin domain.MapBulletin
	require.NoError(t, readJSON(filepath.Join(bulletinsRoot, "2024-05-12_observed.json"), &bulletin))

	assert.Equal(t, "2024-05-12", bulletin.Date)
	assert.Equal(t, domain.KindObserved, bulletin.Kind)
	assert.Equal(t, "bulletin_2024-05-12_map1.png", bulletin.SourceImage)
	assert.Equal(t, map[string]string{"icon1": "Ciel dégagé", "icon2": "Ciel couvert"}, bulletin.Legend)

	// Stations come back in registry order regardless of worker scheduling.
	require.Len(t, bulletin.Stations, 2)
	assert.Equal(t, "OUAGADOUGOU", bulletin.Stations[0].Name)
	assert.Equal(t, "BOBO DIOULASSO", bulletin.Stations[1].Name)
	require.NotNil(t, bulletin.Stations[0].Tmin)
	assert.Equal(t, 25, *bulletin.Stations[0].Tmin)
	require.NotNil(t, bulletin.Stations[0].Icon)
	assert.Equal(t, domain.IconClearSky, *bulletin.Stations[0].Icon)

	var forecast domain.MapBulletin
	require.NoError(t, readJSON(filepath.Join(bulletinsRoot, "2024-05-12_forecast.json"), &forecast))
	assert.Equal(t, domain.KindForecast, forecast.Kind)
}

func TestAssemblerRunMirrorsSubdirectories(t *testing.T) {
	mapsRoot := t.TempDir()
	bulletinsRoot := t.TempDir()

	yearDir := filepath.Join(mapsRoot, "2024")
	require.NoError(t, os.MkdirAll(yearDir, 0o755))
	require.NoError(t, imaging.SavePNG(filepath.Join(yearDir, "bulletin_2024-05-12_map1.png"), testMapImage()))

	summary, err := newTestAssembler(stationInferrer()).Run(context.Background(), mapsRoot, bulletinsRoot)
	require.NoError(t, err)
	require.Equal(t, 1, summary.BulletinsWritten)

	var bulletin domain.MapBulletin
	require.NoError(t, readJSON(filepath.Join(bulletinsRoot, "2024", "2024-05-12_observed.json"), &bulletin))
	assert.Equal(t, "2024-05-12", bulletin.Date)
}

func TestAssemblerRunResumesWithoutReprocessing(t *testing.T) {
	mapsRoot := t.TempDir()
	bulletinsRoot := t.TempDir()

	require.NoError(t, imaging.SavePNG(filepath.Join(mapsRoot, "bulletin_2024-05-12_map1.png"), testMapImage()))

	first := stationInferrer()
	summary, err := newTestAssembler(first).Run(context.Background(), mapsRoot, bulletinsRoot)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)

	before, err := os.ReadFile(filepath.Join(bulletinsRoot, "2024-05-12_observed.json"))
	require.NoError(t, err)

	second := stationInferrer()
	summary, err = newTestAssembler(second).Run(context.Background(), mapsRoot, bulletinsRoot)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, second.callCount(), "resume must not touch the inference service")

	after, err := os.ReadFile(filepath.Join(bulletinsRoot, "2024-05-12_observed.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "existing bulletin must not be rewritten")
}

func TestAssemblerRunCountsFailures(t *testing.T) {
	mapsRoot := t.TempDir()
	bulletinsRoot := t.TempDir()

	// Not an image at all.
	require.NoError(t, os.WriteFile(filepath.Join(mapsRoot, "2024-05-12_map1.png"), []byte("not a png"), 0o644))
	// Decodes fine but contains no map drawing.
	require.NoError(t, imaging.SavePNG(filepath.Join(mapsRoot, "2024-05-13_map1.png"), whiteImage(400, 400)))

	summary, err := newTestAssembler(stationInferrer()).Run(context.Background(), mapsRoot, bulletinsRoot)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.DecodeFailures)
	assert.Equal(t, 1, summary.DetectionFailures)
	assert.Equal(t, 0, summary.BulletinsWritten)
}

func TestAssemblerRunStopsOnCancel(t *testing.T) {
	mapsRoot := t.TempDir()
	bulletinsRoot := t.TempDir()
	require.NoError(t, imaging.SavePNG(filepath.Join(mapsRoot, "bulletin_2024-05-12_map1.png"), testMapImage()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAssembler(stationInferrer()).Run(ctx, mapsRoot, bulletinsRoot)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListMapImagesOrdering(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"bulletin_2024-05-13_map1.png",
		"bulletin_2024-05-12_map2.jpg",
		"scan_sans_date_map1.png",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	images, err := listMapImages(root)
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, "scan_sans_date_map1.png", filepath.Base(images[0].path))
	assert.Equal(t, "bulletin_2024-05-12_map2.jpg", filepath.Base(images[1].path))
	assert.Equal(t, "bulletin_2024-05-13_map1.png", filepath.Base(images[2].path))
}

func TestAssemblerReadiness(t *testing.T) {
	a := newTestAssembler(stationInferrer())
	require.Error(t, a.CheckReadiness(context.Background()))

	_, err := a.Run(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, a.CheckReadiness(context.Background()))
}

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoburkina/bulletin-etl/internal/imaging"
)

func TestPreparePages(t *testing.T) {
	pagesRoot := t.TempDir()
	mapsRoot := t.TempDir()

	page := whiteImage(1000, 1000)
	require.NoError(t, imaging.SavePNG(filepath.Join(pagesRoot, "bulletin_2024-05-12.png"), page))
	require.NoError(t, os.WriteFile(filepath.Join(pagesRoot, "notes.txt"), []byte("x"), 0o644))

	written, err := PreparePages(pagesRoot, mapsRoot, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	observed, err := imaging.LoadImage(filepath.Join(mapsRoot, "bulletin_2024-05-12_map1.png"))
	require.NoError(t, err)
	assert.Equal(t, 520, observed.Bounds().Dx())

	forecast, err := imaging.LoadImage(filepath.Join(mapsRoot, "bulletin_2024-05-12_map2.png"))
	require.NoError(t, err)
	assert.Equal(t, 340, forecast.Bounds().Dy())

	// The crop filenames carry the markers the batch keys on.
	meta := listAndParse(t, mapsRoot)
	assert.Equal(t, "2024-05-12", meta[0].meta.Date)
}

func TestPreparePagesIdempotent(t *testing.T) {
	pagesRoot := t.TempDir()
	mapsRoot := t.TempDir()
	require.NoError(t, imaging.SavePNG(filepath.Join(pagesRoot, "bulletin_2024-05-12.png"), whiteImage(1000, 1000)))

	written, err := PreparePages(pagesRoot, mapsRoot, testLogger())
	require.NoError(t, err)
	require.Equal(t, 2, written)

	written, err = PreparePages(pagesRoot, mapsRoot, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func listAndParse(t *testing.T, root string) []mapImage {
	t.Helper()
	images, err := listMapImages(root)
	require.NoError(t, err)
	require.NotEmpty(t, images)
	return images
}

package imaging

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropSquare(t *testing.T) {
	img := testPage(400, 300)

	t.Run("interior crop is full size", func(t *testing.T) {
		crop, ok := CropSquare(img, 200, 150, 80)
		require.True(t, ok)
		assert.Equal(t, 160, crop.Bounds().Dx())
		assert.Equal(t, 160, crop.Bounds().Dy())
	})

	t.Run("edge crop is clipped", func(t *testing.T) {
		crop, ok := CropSquare(img, 10, 10, 80)
		require.True(t, ok)
		assert.Equal(t, 90, crop.Bounds().Dx())
		assert.Equal(t, 90, crop.Bounds().Dy())
	})

	t.Run("fully outside is empty", func(t *testing.T) {
		_, ok := CropSquare(img, -200, 150, 80)
		assert.False(t, ok)

		_, ok = CropSquare(img, 200, 500, 80)
		assert.False(t, ok)
	})
}

func TestCropBottom(t *testing.T) {
	img := testPage(400, 300)

	legend := CropBottom(img, 0.30)
	assert.Equal(t, 400, legend.Bounds().Dx())
	assert.Equal(t, 90, legend.Bounds().Dy())
}

func TestCropPageMaps(t *testing.T) {
	page := testPage(1000, 1000)

	observed, forecast := CropPageMaps(page)

	// Map 1: x 0.45..0.97, y 0.23..0.55 of the page.
	assert.Equal(t, 520, observed.Bounds().Dx())
	assert.Equal(t, 320, observed.Bounds().Dy())

	// Map 2: x 0.45..0.97, y 0.56..0.90.
	assert.Equal(t, 520, forecast.Bounds().Dx())
	assert.Equal(t, 340, forecast.Bounds().Dy())
}

func TestEncodePNGRoundTrip(t *testing.T) {
	data, err := EncodePNG(testPage(20, 20, image.Rect(5, 5, 15, 15)))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// PNG magic number.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

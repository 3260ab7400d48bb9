// Package imaging implements the raster operations of the extraction
// pipeline: decoding scanned map images, locating the map drawing inside a
// page, and cutting the crops handed to the inference service.
//
// Scans are noisy and carry no fixed layout, so the locator makes no
// assumption beyond "a dark drawing on a light page": grayscale, Gaussian
// blur against scan noise, inverted binarization with an Otsu-selected
// threshold, then connected-component bounding rectangles. The largest
// rectangle covering between 5% and 90% of the page wins; the lower bound
// rejects specks and stamps, the upper bound rejects the page border itself.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	_ "image/jpeg" // register decoders for the formats bulletins arrive in
)

// LoadImage decodes a PNG or JPEG map image from disk.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// EncodePNG serializes an image to PNG bytes for embedding in an inference
// request.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes an image to disk, creating the file with 0644.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png %s: %w", path, err)
	}
	return nil
}

// grayscale flattens an image to one luminance byte per pixel, row-major.
func grayscale(img image.Image) ([]uint8, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			pix[y*w+x] = g.Y
		}
	}
	return pix, w, h
}

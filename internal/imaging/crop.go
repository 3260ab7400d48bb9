package imaging

import (
	"image"
	"image/draw"
)

// Relative page regions of the two map drawings on a bulletin page: map 1
// (observed, top right) and map 2 (forecast, bottom right). Pages are laid
// out consistently even though the drawings inside them are not.
var (
	pageMap1 = relRect{0.45, 0.23, 0.97, 0.55}
	pageMap2 = relRect{0.45, 0.56, 0.97, 0.90}
)

type relRect struct {
	x0, y0, x1, y1 float64
}

// CropSquare cuts a square window of the given half-size centered on (cx, cy),
// clipped to the image bounds. ok is false when the clipped window is empty,
// which happens for cities projected at or beyond the image edge. That is an
// expected condition, not an error.
func CropSquare(img image.Image, cx, cy, half int) (image.Image, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	x0 := max(0, cx-half)
	y0 := max(0, cy-half)
	x1 := min(w, cx+half)
	y1 := min(h, cy+half)

	if x1 <= x0 || y1 <= y0 {
		return nil, false
	}
	return copyRegion(img, x0, y0, x1, y1), true
}

// CropBottom cuts the bottom fraction of the image, where map legends are
// laid out.
func CropBottom(img image.Image, fraction float64) image.Image {
	b := img.Bounds()
	h := b.Dy()
	y0 := int(float64(h) * (1 - fraction))
	if y0 < 0 {
		y0 = 0
	}
	if y0 >= h {
		y0 = h - 1
	}
	return copyRegion(img, 0, y0, b.Dx(), h)
}

// CropPageMaps cuts the observed and forecast map regions out of a full
// bulletin page scan.
func CropPageMaps(page image.Image) (observed, forecast image.Image) {
	return cropRel(page, pageMap1), cropRel(page, pageMap2)
}

func cropRel(img image.Image, r relRect) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	return copyRegion(img, int(w*r.x0), int(h*r.y0), int(w*r.x1), int(h*r.y1))
}

// copyRegion extracts [x0,x1)×[y0,y1) (coordinates relative to the image's
// top-left corner) into a fresh RGBA image anchored at the origin.
func copyRegion(img image.Image, x0, y0, x1, y1 int) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	draw.Draw(out, out.Bounds(), img, image.Pt(b.Min.X+x0, b.Min.Y+y0), draw.Src)
	return out
}

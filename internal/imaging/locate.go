package imaging

import (
	"errors"
	"image"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
)

// ErrMapNotFound is returned when no connected region of plausible size
// exists in the image. Callers skip the image and count the failure; it is
// never fatal to a batch.
var ErrMapNotFound = errors.New("no map region found in image")

// Area bounds for a candidate map rectangle, as fractions of the page area.
const (
	minAreaFraction = 0.05
	maxAreaFraction = 0.9
)

// Locate finds the bounding box of the map drawing inside a page or crop
// image. The box satisfies x0<x1, y0<y1 and covers between 5% and 90% of the
// image area.
func Locate(img image.Image) (domain.BoundingBox, error) {
	pix, w, h := grayscale(img)
	if w == 0 || h == 0 {
		return domain.BoundingBox{}, ErrMapNotFound
	}

	blurred := gaussianBlur5(pix, w, h)
	threshold := otsuThreshold(blurred)

	// Inverted binarization: the drawing is dark ink on a light page, so
	// foreground is everything at or below the threshold.
	foreground := make([]bool, len(blurred))
	for i, v := range blurred {
		foreground[i] = v <= threshold
	}

	imgArea := w * h
	best := domain.BoundingBox{}
	bestArea := 0

	for _, box := range componentBounds(foreground, w, h) {
		area := box.Area()
		if area < int(minAreaFraction*float64(imgArea)) {
			continue
		}
		if area > int(maxAreaFraction*float64(imgArea)) {
			continue
		}
		if area > bestArea {
			bestArea = area
			best = box
		}
	}

	if bestArea == 0 {
		return domain.BoundingBox{}, ErrMapNotFound
	}
	return best, nil
}

// gaussianBlur5 applies a 5x5 Gaussian kernel (binomial weights, sum 256)
// with clamped edges.
func gaussianBlur5(pix []uint8, w, h int) []uint8 {
	kernel := [5]int{1, 4, 6, 4, 1}
	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}

	// Separable pass: horizontal then vertical.
	tmp := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += kernel[k+2] * int(pix[y*w+clamp(x+k, w-1)])
			}
			tmp[y*w+x] = sum
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += kernel[k+2] * tmp[clamp(y+k, h-1)*w+x]
			}
			out[y*w+x] = uint8(sum / 256)
		}
	}
	return out
}

// otsuThreshold picks the global threshold maximizing between-class variance
// of the luminance histogram.
func otsuThreshold(pix []uint8) uint8 {
	var hist [256]int
	for _, v := range pix {
		hist[v]++
	}

	total := len(pix)
	var sumAll float64
	for v, n := range hist {
		sumAll += float64(v) * float64(n)
	}

	var (
		sumBelow   float64
		countBelow int
		bestVar    float64
		best       uint8
	)
	for t := 0; t < 256; t++ {
		countBelow += hist[t]
		if countBelow == 0 {
			continue
		}
		countAbove := total - countBelow
		if countAbove == 0 {
			break
		}
		sumBelow += float64(t) * float64(hist[t])

		meanBelow := sumBelow / float64(countBelow)
		meanAbove := (sumAll - sumBelow) / float64(countAbove)
		diff := meanBelow - meanAbove
		betweenVar := float64(countBelow) * float64(countAbove) * diff * diff

		if betweenVar > bestVar {
			bestVar = betweenVar
			best = uint8(t)
		}
	}
	return best
}

// componentBounds returns the bounding rectangle of every 4-connected
// foreground component. X1/Y1 are exclusive, so Width/Height match the pixel
// extents.
func componentBounds(foreground []bool, w, h int) []domain.BoundingBox {
	visited := make([]bool, len(foreground))
	var boxes []domain.BoundingBox
	var stack []int

	for start := range foreground {
		if !foreground[start] || visited[start] {
			continue
		}

		minX, minY := start%w, start/w
		maxX, maxY := minX, minY

		visited[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := i%w, i/w
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			push := func(n int) {
				if foreground[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
			if x > 0 {
				push(i - 1)
			}
			if x < w-1 {
				push(i + 1)
			}
			if y > 0 {
				push(i - w)
			}
			if y < h-1 {
				push(i + w)
			}
		}

		boxes = append(boxes, domain.BoundingBox{X0: minX, Y0: minY, X1: maxX + 1, Y1: maxY + 1})
	}
	return boxes
}

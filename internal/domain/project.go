package domain

// ProjectCity maps a registry entry's relative coordinates into the pixel
// space of a detected map bounding box. Pure arithmetic: the relative
// coordinates are the portable artifact, so this runs once per (city, image)
// pair as scan resolutions and margins vary. For x_rel, y_rel in [0,1] the
// result lies within the box.
func ProjectCity(b BoundingBox, c CityEntry) (x, y int) {
	x = b.X0 + int(c.XRel*float64(b.Width()))
	y = b.Y0 + int(c.YRel*float64(b.Height()))
	return x, y
}

package domain

// CityEntry is one row of the city registry: a station name with its position
// expressed as fractions of the map drawing, optionally annotated with
// geographic coordinates used to enrich merged reports.
type CityEntry struct {
	Name      string   `json:"name" validate:"required"`
	XRel      float64  `json:"x_rel" validate:"gte=0,lte=1"`
	YRel      float64  `json:"y_rel" validate:"gte=0,lte=1"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// BoundingBox is an axis-aligned pixel rectangle with x0 < x1 and y0 < y1.
type BoundingBox struct {
	X0, Y0, X1, Y1 int
}

func (b BoundingBox) Width() int  { return b.X1 - b.X0 }
func (b BoundingBox) Height() int { return b.Y1 - b.Y0 }
func (b BoundingBox) Area() int   { return b.Width() * b.Height() }

// MapKind distinguishes the two maps of a bulletin page.
type MapKind string

const (
	KindObserved MapKind = "observed"
	KindForecast MapKind = "forecast"

	// KindUnknown is used when a filename carries no map marker.
	KindUnknown MapKind = "map"
)

// StationReading is one city's extraction from one map image. Nil fields mean
// the value could not be read or did not pass validation.
type StationReading struct {
	Name string  `json:"nom"`
	Tmin *int    `json:"tmin"`
	Tmax *int    `json:"tmax"`
	Icon *string `json:"weather_icon,omitempty"`
}

// MapBulletin is the per-image output document: every registry city's reading
// for one dated map, in registry order.
type MapBulletin struct {
	Date        string            `json:"date_bulletin"`
	Kind        MapKind           `json:"map_type"`
	SourceImage string            `json:"source_image"`
	Legend      map[string]string `json:"legend,omitempty"`
	Stations    []StationReading  `json:"stations"`
}

// MergedStationReport is the per-city, per-date union of an observed and a
// forecast reading. Text fields are "" rather than null when missing so the
// persisted schema stays total; the interpretation fields are reserved for
// downstream translations and always empty here.
type MergedStationReport struct {
	Name      string   `json:"nom"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	TminObs  *int   `json:"Tmin_obs"`
	TmaxObs  *int   `json:"Tmax_obs"`
	TempsObs string `json:"temps_obs"`

	TminPrev  *int   `json:"Tmin_prev"`
	TmaxPrev  *int   `json:"Tmax_prev"`
	TempsPrev string `json:"temps_prev"`

	InterpretationMoore  string `json:"interpretation_moore"`
	InterpretationDioula string `json:"interpretation_dioula"`
}

// HasSignal reports whether at least one of the four temperature fields is
// set. Reports without signal are dropped by the pruning pass.
func (r MergedStationReport) HasSignal() bool {
	return r.TminObs != nil || r.TmaxObs != nil || r.TminPrev != nil || r.TmaxPrev != nil
}

// MergedBulletin is one date's merged document, the unit consumed by the
// corpus aggregator and the persistence layer.
type MergedBulletin struct {
	Date     string                `json:"date_bulletin"`
	Stations []MergedStationReport `json:"stations"`
}

// CorpusBulletin is a merged bulletin annotated with the path it was read
// from during aggregation.
type CorpusBulletin struct {
	MergedBulletin
	SourceFile string `json:"_source_file"`
}

// CorpusDataset is the single artifact handed to the persistence layer:
// every merged bulletin in the tree, sorted by date.
type CorpusDataset struct {
	GeneratedAt   string           `json:"generated_at"`
	BulletinCount int              `json:"bulletin_count"`
	Bulletins     []CorpusBulletin `json:"bulletins"`
}

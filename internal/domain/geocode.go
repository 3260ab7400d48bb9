package domain

import "context"

// GeocodingResult is a resolved place from an external geocoding service.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	PlaceName        string
	FormattedAddress string
	Confidence       float64
}

// Found reports whether the lookup resolved anything.
func (r GeocodingResult) Found() bool {
	return r.FormattedAddress != ""
}

// Geocoder resolves a station name to coordinates. Used to backfill registry
// entries that carry no latitude and longitude; lookups that fail leave the
// entry as is.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, name, country string) (GeocodingResult, error)
}

// FillCoordinates returns a copy of cities where every entry missing both
// coordinates has been resolved through the geocoder. Lookup failures and
// empty results keep the original entry untouched; the error count is
// returned for logging.
func FillCoordinates(ctx context.Context, cities []CityEntry, geocoder Geocoder, country string) ([]CityEntry, int) {
	out := make([]CityEntry, len(cities))
	copy(out, cities)

	failures := 0
	for i := range out {
		if out[i].Latitude != nil || out[i].Longitude != nil {
			continue
		}
		result, err := geocoder.ForwardGeocode(ctx, out[i].Name, country)
		if err != nil || !result.Found() {
			failures++
			continue
		}
		lat, lon := result.Lat, result.Lon
		out[i].Latitude = &lat
		out[i].Longitude = &lon
	}
	return out, failures
}

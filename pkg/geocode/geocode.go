package geocode

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when no place is known for a coordinate.
	ErrNotFound = errors.New("no place found")

	// ErrLookup is returned when a geocoding backend fails.
	ErrLookup = errors.New("reverse geocode")
)

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Valid reports whether c is within the WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

// Place is the administrative location of a coordinate. Empty fields are
// unknown.
type Place struct {
	Country     string `json:"country,omitempty"      yaml:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	State       string `json:"state,omitempty"        yaml:"state,omitempty"`
	City        string `json:"city,omitempty"         yaml:"city,omitempty"`
	County      string `json:"county,omitempty"       yaml:"county,omitempty"`
	Road        string `json:"road,omitempty"         yaml:"road,omitempty"`
}

// Normalize returns p with every field in Unicode NFC form.
func (p Place) Normalize() Place {
	return Place{
		Country:     norm.NFC.String(p.Country),
		CountryCode: norm.NFC.String(p.CountryCode),
		State:       norm.NFC.String(p.State),
		City:        norm.NFC.String(p.City),
		County:      norm.NFC.String(p.County),
		Road:        norm.NFC.String(p.Road),
	}
}

// Geocoder resolves coordinates to places.
type Geocoder interface {
	Reverse(ctx context.Context, c Coordinate) (*Place, error)
}

// distanceKm returns the great-circle distance between a and b.
func distanceKm(a, b Coordinate) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

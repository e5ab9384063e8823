package geocode

import (
	"context"
	"fmt"

	"github.com/nilp0inter/monana/pkg/yaml"
)

// KnownPlace is a named location in an offline places list.
type KnownPlace struct {
	Place `json:",inline" yaml:",inline"`

	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Places geocodes offline by picking the nearest known place.
type Places struct {
	places   []KnownPlace
	radiusKm float64
}

// NewPlaces creates a [Places] geocoder. A radiusKm of zero accepts the
// nearest place at any distance.
func NewPlaces(places []KnownPlace, radiusKm float64) *Places {
	return &Places{places: places, radiusKm: radiusKm}
}

// LoadPlaces reads a YAML list of [KnownPlace] entries.
func LoadPlaces(data []byte, radiusKm float64) (*Places, error) {
	var places []KnownPlace

	if err := yaml.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("decode places: %w", err)
	}

	for i := range places {
		places[i].Place = places[i].Normalize()
	}

	return NewPlaces(places, radiusKm), nil
}

// Reverse implements [Geocoder].
func (p *Places) Reverse(_ context.Context, c Coordinate) (*Place, error) {
	best := -1

	var bestKm float64

	for i, kp := range p.places {
		d := distanceKm(c, Coordinate{Lat: kp.Lat, Lon: kp.Lon})
		if best == -1 || d < bestKm {
			best, bestKm = i, d
		}
	}

	if best == -1 || (p.radiusKm > 0 && bestKm > p.radiusKm) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
	}

	place := p.places[best].Place

	return &place, nil
}

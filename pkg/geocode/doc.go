// Package geocode resolves coordinates to administrative places.
//
// [Nominatim] queries an OpenStreetMap Nominatim server, [Places] looks up
// the nearest entry of an offline list, and [Cached] memoizes either.
package geocode

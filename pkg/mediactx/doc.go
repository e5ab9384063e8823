// Package mediactx builds the typed attribute set that conditions and
// templates are evaluated against.
//
// Each file resolves exactly one creation instant, in priority order:
//
//  1. EXIF DateTimeOriginal, then DateTimeDigitized.
//  2. A date embedded in the file name, for videos and files without EXIF.
//  3. The earlier of the modification and status-change times.
//
// and at most one coordinate pair:
//
//  1. EXIF GPS coordinates.
//  2. The location history point nearest in time, within a maximum offset.
//
// A resolved coordinate pair is reverse geocoded to fill space.country,
// space.city and friends. Geocoding failures leave those fields absent.
package mediactx

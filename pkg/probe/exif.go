package probe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/nilp0inter/monana/pkg/attr"
)

// ExifTimeLayout is the EXIF date/time format. EXIF times carry no zone and
// are read as UTC.
const ExifTimeLayout = "2006:01:02 15:04:05"

// ErrNoEXIF is returned when a file carries no decodable EXIF block.
var ErrNoEXIF = errors.New("no exif data")

// EXIF holds the decoded EXIF facts monana cares about, plus every tag in
// Tags with its native type preserved.
type EXIF struct {
	Captured    time.Time
	Tags        map[string]attr.Value
	Altitude    *float64
	Make        string
	Model       string
	Lat, Lon    float64
	Orientation int
	Width       int
	Height      int
	HasGPS      bool
}

// ReadEXIF decodes the EXIF block of the file at path.
func ReadEXIF(path string) (*EXIF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only.

	return DecodeEXIF(f)
}

// DecodeEXIF decodes an EXIF block from r, which may be a JPEG, TIFF or
// raw EXIF stream.
func DecodeEXIF(r io.Reader) (*EXIF, error) {
	x, err := exif.Decode(r)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("%w: %w", ErrNoEXIF, err)
	}

	out := &EXIF{Tags: map[string]attr.Value{}}

	// Walk never fails with our walker.
	_ = x.Walk(tagWalker(out.Tags)) //nolint:errcheck // See above.

	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized} {
		if t, ok := exifTime(x, name); ok {
			out.Captured = t
			break
		}
	}

	if lat, lon, err := x.LatLong(); err == nil && validLatLon(lat, lon) {
		out.Lat, out.Lon, out.HasGPS = lat, lon, true
		out.Tags[string(exif.GPSLatitude)] = attr.Float(lat)
		out.Tags[string(exif.GPSLongitude)] = attr.Float(lon)

		if alt, ok := exifAltitude(x); ok {
			out.Altitude = &alt
		}
	}

	out.Make = exifString(x, exif.Make)
	out.Model = exifString(x, exif.Model)
	out.Orientation = exifInt(x, exif.Orientation)
	out.Width = exifInt(x, exif.PixelXDimension)
	out.Height = exifInt(x, exif.PixelYDimension)

	return out, nil
}

// HasCaptured reports whether a capture time tag was found.
func (e *EXIF) HasCaptured() bool {
	return e != nil && !e.Captured.IsZero()
}

// ParseExifTime parses an EXIF date/time string as UTC.
func ParseExifTime(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))

	t, err := time.ParseInLocation(ExifTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse exif time %q: %w", s, err)
	}

	return t, nil
}

type tagWalker map[string]attr.Value

// Walk implements [exif.Walker]. Only the first value of multi-valued tags
// is kept. Undefined (opaque) tags are skipped.
func (w tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if strings.HasSuffix(string(name), "IFDPointer") {
		return nil
	}

	if v := tagValue(tag); !v.IsAbsent() {
		w[string(name)] = v
	}

	return nil
}

func tagValue(tag *tiff.Tag) attr.Value {
	if tag == nil {
		return attr.Absent()
	}

	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return attr.Absent()
		}

		return attr.String(strings.TrimSpace(strings.TrimRight(s, "\x00")))

	case tiff.IntVal:
		if tag.Count == 0 {
			return attr.Absent()
		}

		i, err := tag.Int64(0)
		if err != nil {
			return attr.Absent()
		}

		return attr.Int(i)

	case tiff.RatVal:
		if tag.Count == 0 {
			return attr.Absent()
		}

		num, den, err := tag.Rat2(0)
		if err != nil || den == 0 {
			return attr.Absent()
		}

		return attr.Float(float64(num) / float64(den))

	case tiff.FloatVal:
		if tag.Count == 0 {
			return attr.Absent()
		}

		f, err := tag.Float(0)
		if err != nil {
			return attr.Absent()
		}

		return attr.Float(f)
	}

	return attr.Absent()
}

func exifTime(x *exif.Exif, name exif.FieldName) (time.Time, bool) {
	s := exifString(x, name)
	if s == "" {
		return time.Time{}, false
	}

	t, err := ParseExifTime(s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}

	s, err := tag.StringVal()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func exifInt(x *exif.Exif, name exif.FieldName) int {
	tag, err := x.Get(name)
	if err != nil || tag.Count == 0 {
		return 0
	}

	i, err := tag.Int(0)
	if err != nil {
		return 0
	}

	return i
}

func exifAltitude(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil || tag.Count == 0 {
		return 0, false
	}

	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}

	alt := float64(num) / float64(den)
	// A reference of 1 means below sea level.
	if exifInt(x, exif.GPSAltitudeRef) == 1 {
		alt = -alt
	}

	return alt, true
}

func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 && (lat != 0 || lon != 0)
}

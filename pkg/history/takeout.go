package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ErrFormat is returned when a location history document cannot be parsed.
var ErrFormat = errors.New("location history format")

type takeoutLocation struct {
	LatitudeE7  *int32            `json:"latitudeE7"`
	LongitudeE7 *int32            `json:"longitudeE7"`
	TimestampMs string            `json:"timestampMs"`
	Timestamp   string            `json:"timestamp"`
	Activity    []takeoutActivity `json:"activity"`
}

type takeoutActivity struct {
	TimestampMs string `json:"timestampMs"`
	Timestamp   string `json:"timestamp"`
}

// LoadStats reports what an import produced.
type LoadStats struct {
	Locations  int
	Activities int
	Skipped    int
}

// LoadFile reads a Google Takeout location history file.
func LoadFile(path string) (*Index, LoadStats, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Path comes from configuration.
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open location history: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	return Load(bufio.NewReader(f))
}

// Load reads a Google Takeout location history document from r.
//
// Each location yields a point, and each nested activity yields an extra
// point with the parent's coordinates. The locations array is streamed.
func Load(r io.Reader) (*Index, LoadStats, error) {
	var (
		stats  LoadStats
		points []Point
	)

	dec := json.NewDecoder(r)

	if err := seekLocations(dec); err != nil {
		return nil, stats, err
	}

	for dec.More() {
		var loc takeoutLocation

		if err := dec.Decode(&loc); err != nil {
			return nil, stats, fmt.Errorf("%w: decode location %d: %w", ErrFormat, stats.Locations+stats.Skipped, err)
		}

		ts, ok := parseTimestamp(loc.TimestampMs, loc.Timestamp)
		if !ok || loc.LatitudeE7 == nil || loc.LongitudeE7 == nil {
			stats.Skipped++
			continue
		}

		points = append(points, Point{Time: ts, LatitudeE7: *loc.LatitudeE7, LongitudeE7: *loc.LongitudeE7})
		stats.Locations++

		for _, act := range loc.Activity {
			ats, ok := parseTimestamp(act.TimestampMs, act.Timestamp)
			if !ok {
				stats.Skipped++
				continue
			}

			points = append(points, Point{Time: ats, LatitudeE7: *loc.LatitudeE7, LongitudeE7: *loc.LongitudeE7})
			stats.Activities++
		}
	}

	// Closing bracket of the locations array.
	if _, err := dec.Token(); err != nil {
		return nil, stats, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return New(points), stats, nil
}

// seekLocations advances dec to the first element of the top-level
// "locations" array, skipping any other members.
func seekLocations(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected an object at the top level", ErrFormat)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}

		key, _ := tok.(string)
		if key != "locations" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("%w: skip %q: %w", ErrFormat, key, err)
			}

			continue
		}

		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}

		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return fmt.Errorf("%w: \"locations\" is not an array", ErrFormat)
		}

		return nil
	}

	return fmt.Errorf("%w: missing \"locations\"", ErrFormat)
}

func parseTimestamp(ms, rfc string) (time.Time, bool) {
	if ms != "" {
		n, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			return time.Time{}, false
		}

		return time.UnixMilli(n).UTC(), true
	}

	if rfc != "" {
		t, err := time.Parse(time.RFC3339Nano, rfc)
		if err != nil {
			return time.Time{}, false
		}

		return t.UTC(), true
	}

	return time.Time{}, false
}

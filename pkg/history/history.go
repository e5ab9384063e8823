package history

import (
	"slices"
	"sort"
	"time"
)

// DefaultMaxOffset is the widest time gap accepted between a capture
// instant and a history point.
const DefaultMaxOffset = 48 * time.Hour

// Point is one timestamped location sample. Coordinates are stored in
// 1e-7 degree units.
type Point struct {
	Time        time.Time
	LatitudeE7  int32
	LongitudeE7 int32
}

// Latitude returns the latitude in degrees.
func (p Point) Latitude() float64 { return float64(p.LatitudeE7) / 1e7 }

// Longitude returns the longitude in degrees.
func (p Point) Longitude() float64 { return float64(p.LongitudeE7) / 1e7 }

// Match is the result of a nearest-point query.
type Match struct {
	Point Point
	// Offset is the absolute time distance between the query and the point.
	Offset time.Duration
}

// Index answers nearest-in-time queries over a sorted point set.
// It is read-only after construction and safe for concurrent use.
type Index struct {
	points []Point
}

// New builds an [Index]. The input is copied and sorted by time; points
// with equal timestamps keep their input order.
func New(points []Point) *Index {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		return a.Time.Compare(b.Time)
	})

	return &Index{points: sorted}
}

// Len returns the number of points in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}

	return len(idx.points)
}

// Nearest returns the point minimizing the absolute time distance to t.
// Ties go to the earliest point.
func (idx *Index) Nearest(t time.Time) (Match, bool) {
	if idx.Len() == 0 {
		return Match{}, false
	}

	// First point at or after t.
	i := sort.Search(len(idx.points), func(i int) bool {
		return !idx.points[i].Time.Before(t)
	})

	best := -1

	var bestOffset time.Duration

	consider := func(j int) {
		if j < 0 || j >= len(idx.points) {
			return
		}

		d := idx.points[j].Time.Sub(t).Abs()
		if best == -1 || d < bestOffset {
			best, bestOffset = j, d
		}
	}

	// The earlier candidate is considered first so equal distances keep it.
	consider(i - 1)
	consider(i)

	if best > 0 && best == i-1 {
		// Walk back over equal timestamps to the earliest one.
		for best > 0 && idx.points[best-1].Time.Equal(idx.points[best].Time) {
			best--
		}
	}

	return Match{Point: idx.points[best], Offset: bestOffset}, true
}

// Within returns the nearest point to t if it is no further than maxOffset.
func (idx *Index) Within(t time.Time, maxOffset time.Duration) (Match, bool) {
	m, ok := idx.Nearest(t)
	if !ok || m.Offset > maxOffset {
		return Match{}, false
	}

	return m, true
}

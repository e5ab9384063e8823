package history_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/pkg/history"
)

var epoch = time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC)

func at(hours float64) time.Time {
	return epoch.Add(time.Duration(hours * float64(time.Hour)))
}

func TestNearest(t *testing.T) {
	t.Parallel()

	idx := history.New([]history.Point{
		{Time: at(100), LatitudeE7: 2},
		{Time: at(0), LatitudeE7: 1},
	})

	tests := []struct {
		name       string
		query      float64
		wantLat    int32
		wantOffset time.Duration
	}{
		{name: "before all", query: -5, wantLat: 1, wantOffset: 5 * time.Hour},
		{name: "closer to first", query: 40, wantLat: 1, wantOffset: 40 * time.Hour},
		{name: "closer to second", query: 70, wantLat: 2, wantOffset: 30 * time.Hour},
		{name: "tie goes to earliest", query: 50, wantLat: 1, wantOffset: 50 * time.Hour},
		{name: "exact", query: 100, wantLat: 2, wantOffset: 0},
		{name: "after all", query: 200, wantLat: 2, wantOffset: 100 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, ok := idx.Nearest(at(tt.query))
			require.True(t, ok)
			assert.Equal(t, tt.wantLat, m.Point.LatitudeE7)
			assert.Equal(t, tt.wantOffset, m.Offset)
		})
	}
}

func TestNearestDuplicateTimestamps(t *testing.T) {
	t.Parallel()

	idx := history.New([]history.Point{
		{Time: at(0), LatitudeE7: 1},
		{Time: at(0), LatitudeE7: 2},
		{Time: at(10), LatitudeE7: 3},
	})

	m, ok := idx.Nearest(at(1))
	require.True(t, ok)
	assert.Equal(t, int32(1), m.Point.LatitudeE7)
}

func TestWithin(t *testing.T) {
	t.Parallel()

	idx := history.New([]history.Point{
		{Time: at(0), LatitudeE7: 1},
		{Time: at(100), LatitudeE7: 2},
	})

	m, ok := idx.Within(at(40), history.DefaultMaxOffset)
	require.True(t, ok)
	assert.Equal(t, int32(1), m.Point.LatitudeE7)

	_, ok = idx.Within(at(200), history.DefaultMaxOffset)
	assert.False(t, ok)

	_, ok = idx.Within(at(50), 49*time.Hour)
	assert.False(t, ok)

	var empty *history.Index
	_, ok = empty.Within(at(0), history.DefaultMaxOffset)
	assert.False(t, ok)
}

func TestConcurrentQueries(t *testing.T) {
	t.Parallel()

	points := make([]history.Point, 0, 1000)
	for i := range 1000 {
		points = append(points, history.Point{Time: at(float64(i)), LatitudeE7: int32(i)})
	}

	idx := history.New(points)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			m, ok := idx.Nearest(at(float64(i*10) + 0.2))
			assert.True(t, ok)
			assert.Equal(t, int32(i*10), m.Point.LatitudeE7)
		})
	}

	wg.Wait()
}

func TestLoad(t *testing.T) {
	t.Parallel()

	doc := `{
  "locations": [
    {"timestampMs": "1752876000000", "latitudeE7": 404167754, "longitudeE7": -37037902,
     "activity": [{"timestampMs": "1752875000000"}, {"timestampMs": "nope"}]},
    {"timestamp": "2025-07-19T10:00:00Z", "latitudeE7": 488566101, "longitudeE7": 23514992},
    {"timestampMs": "1752870000000"}
  ],
  "other": {"ignored": true}
}`

	idx, stats, err := history.Load(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, history.LoadStats{Locations: 2, Activities: 1, Skipped: 2}, stats)
	assert.Equal(t, 3, idx.Len())

	m, ok := idx.Nearest(time.UnixMilli(1752875000000))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), m.Offset)
	assert.InDelta(t, 40.4167754, m.Point.Latitude(), 1e-9)
	assert.InDelta(t, -3.7037902, m.Point.Longitude(), 1e-9)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not an object":   `[]`,
		"no locations":    `{"foo": 1}`,
		"locations type":  `{"locations": {}}`,
		"bad location":    `{"locations": [{"latitudeE7": "x"}]}`,
		"truncated input": `{"locations": [`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, _, err := history.Load(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Records.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"locations":[{"timestampMs":"0","latitudeE7":1,"longitudeE7":2}]}`), 0o600))

	idx, _, err := history.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	_, _, err = history.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nilp0inter/monana/pkg/log"
)

const (
	// DefaultNominatimURL is the public OpenStreetMap Nominatim endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies requests to Nominatim.
	DefaultUserAgent = "monana (+https://github.com/nilp0inter/monana)"

	defaultInterval = time.Second
	defaultTimeout  = 10 * time.Second
)

type nominatimResponse struct {
	Address map[string]string `json:"address"`
	Error   string            `json:"error"`
}

// Nominatim reverse geocodes via the Nominatim HTTP API. Requests are
// spaced at least [NominatimOpts] interval apart.
type Nominatim struct {
	last      time.Time
	client    *http.Client
	tracer    trace.Tracer
	baseURL   string
	userAgent string
	language  string
	interval  time.Duration
	mu        sync.Mutex
}

// NominatimOpt configures a [Nominatim] client.
type NominatimOpt func(*Nominatim)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) NominatimOpt {
	return func(n *Nominatim) { n.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) NominatimOpt {
	return func(n *Nominatim) {
		if ua != "" {
			n.userAgent = ua
		}
	}
}

// WithLanguage sets the preferred language of returned names.
func WithLanguage(lang string) NominatimOpt {
	return func(n *Nominatim) { n.language = lang }
}

// WithInterval sets the minimum time between requests.
func WithInterval(d time.Duration) NominatimOpt {
	return func(n *Nominatim) { n.interval = d }
}

// NewNominatim creates a [Nominatim] client for baseURL.
func NewNominatim(baseURL string, opts ...NominatimOpt) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	n := &Nominatim{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: DefaultUserAgent,
		language:  "en",
		interval:  defaultInterval,
		client:    &http.Client{Timeout: defaultTimeout},
		tracer:    otel.Tracer("geocode"),
	}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Reverse implements [Geocoder].
func (n *Nominatim) Reverse(ctx context.Context, c Coordinate) (*Place, error) {
	ctx, span := n.tracer.Start(ctx, "nominatim.reverse", trace.WithAttributes(
		attribute.String("coordinate", c.String()),
	))
	defer span.End()

	if err := n.wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("zoom", "18")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 7, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', 7, 64))

	if n.language != "" {
		q.Set("accept-language", n.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrLookup, err)
	}

	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body.

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrLookup, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out nominatimResponse

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrLookup, err)
	}

	if out.Error != "" || len(out.Address) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
	}

	place := placeFromAddress(out.Address).Normalize()

	log.WithContext(ctx).DebugContext(ctx, "reverse geocoded",
		slog.String("coordinate", c.String()),
		slog.String("city", place.City),
		slog.String("country", place.Country),
	)

	return &place, nil
}

// wait blocks until the next request slot or ctx is done.
func (n *Nominatim) wait(ctx context.Context) error {
	n.mu.Lock()

	next := n.last.Add(n.interval)
	now := time.Now()

	if next.Before(now) {
		next = now
	}

	n.last = next
	n.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrLookup, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func placeFromAddress(addr map[string]string) Place {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := addr[k]; v != "" {
				return v
			}
		}

		return ""
	}

	return Place{
		Country:     addr["country"],
		CountryCode: strings.ToUpper(addr["country_code"]),
		State:       first("state", "region", "province"),
		City:        first("city", "town", "village", "municipality", "hamlet"),
		County:      first("county", "state_district", "city_district", "district"),
		Road:        first("road", "pedestrian", "footway", "path"),
	}
}

package configs

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/nilp0inter/monana/api"
	"github.com/nilp0inter/monana/pkg/action"
	"github.com/nilp0inter/monana/pkg/execs"
	"github.com/nilp0inter/monana/pkg/geocode"
	"github.com/nilp0inter/monana/pkg/history"
	"github.com/nilp0inter/monana/pkg/log"
	"github.com/nilp0inter/monana/pkg/mediactx"
	"github.com/nilp0inter/monana/pkg/pipeline"
	"github.com/nilp0inter/monana/pkg/probe"
)

// Registry builds the action registry: builtins plus configured actions.
func (c *Config) Registry() (*action.Registry, error) {
	custom := make([]*action.Action, 0, len(c.Actions))

	for _, name := range slices.Sorted(maps.Keys(c.Actions)) {
		spec := c.Actions[name]

		var (
			a   *action.Action
			err error
		)

		if spec.Argv != nil {
			a, err = action.NewCommand(name, spec.Argv)
		} else {
			a, err = action.ParseCommand(name, spec.Line)
		}

		if err != nil {
			return nil, fmt.Errorf("%w: action %q: %w", pipeline.ErrConfiguration, name, err)
		}

		custom = append(custom, a)
	}

	reg, err := action.NewRegistry(custom...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}

	return reg, nil
}

// Graph compiles every ruleset and validates the graph they form.
func (c *Config) Graph() (*pipeline.Graph, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}

	if len(c.Rulesets) == 0 {
		return nil, fmt.Errorf("%w: no rulesets", pipeline.ErrConfiguration)
	}

	rulesets := make([]*pipeline.Ruleset, 0, len(c.Rulesets))

	for _, name := range slices.Sorted(maps.Keys(c.Rulesets)) {
		spec := c.Rulesets[name]
		if spec == nil {
			return nil, fmt.Errorf("%w: ruleset %q: empty definition", pipeline.ErrConfiguration, name)
		}

		input, err := pipeline.ParseInput(spec.Input)
		if err != nil {
			return nil, fmt.Errorf("ruleset %q: %w", name, err)
		}

		rs, err := pipeline.NewRuleset(name, input, spec.Rules, reg, spec.SourceOptions())
		if err != nil {
			return nil, err
		}

		if err := rs.SetFilter(spec.Filter); err != nil {
			return nil, err
		}

		rulesets = append(rulesets, rs)
	}

	return pipeline.NewGraph(rulesets)
}

// MaxOffset returns the parsed location history window.
func (c *Config) MaxOffset() (time.Duration, error) {
	return parseDuration("location_history_max_offset", c.LocationHistoryMaxOffset)
}

// WatchTiming returns the parsed watch debounce and poll interval.
func (c *Config) WatchTiming() (time.Duration, time.Duration, error) {
	debounce, err := parseDuration("watch.debounce", c.Watch.Debounce)
	if err != nil {
		return 0, 0, err
	}

	poll, err := parseDuration("watch.poll_interval", c.Watch.PollInterval)
	if err != nil {
		return 0, 0, err
	}

	return debounce, poll, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", pipeline.ErrConfiguration, field, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: %s: must not be negative", pipeline.ErrConfiguration, field)
	}

	return d, nil
}

func (g *Geocoder) validate() error {
	switch g.Provider {
	case ProviderNone, ProviderNominatim:
	case ProviderPlaces:
		if g.PlacesPath == "" {
			return fmt.Errorf("%w: geocoder: places provider requires places_path", pipeline.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: geocoder: unknown provider %q", pipeline.ErrConfiguration, g.Provider)
	}

	return nil
}

// NewGeocoder builds the configured geocoder, wrapped in a cache. It
// returns nil for the none provider.
func (c *Config) NewGeocoder() (geocode.Geocoder, error) {
	g := c.Geocoder

	if err := g.validate(); err != nil {
		return nil, err
	}

	switch g.Provider {
	case ProviderNominatim:
		return geocode.NewCached(geocode.NewNominatim(g.URL,
			geocode.WithUserAgent(g.UserAgent),
			geocode.WithLanguage(g.Language),
		)), nil

	case ProviderPlaces:
		data, err := api.ReadFile(g.PlacesPath)
		if err != nil {
			return nil, fmt.Errorf("%w: geocoder: %w", pipeline.ErrConfiguration, err)
		}

		places, err := geocode.LoadPlaces(data, g.RadiusKm)
		if err != nil {
			return nil, fmt.Errorf("%w: geocoder: %s: %w", pipeline.ErrConfiguration, g.PlacesPath, err)
		}

		return geocode.NewCached(places), nil
	}

	return nil, nil //nolint:nilnil // No geocoding.
}

// NewBuilder loads the location history and geocoder and returns the
// media context builder they feed. Videos are probed with ffprobe when it
// is installed.
func (c *Config) NewBuilder(ctx context.Context, executor *execs.Executor) (*mediactx.Builder, error) {
	maxOffset, err := c.MaxOffset()
	if err != nil {
		return nil, err
	}

	geocoder, err := c.NewGeocoder()
	if err != nil {
		return nil, err
	}

	b := &mediactx.Builder{Geocoder: geocoder, MaxOffset: maxOffset}

	logger := log.WithContext(ctx)

	if c.LocationHistoryPath != "" {
		idx, stats, err := history.LoadFile(c.LocationHistoryPath)
		if err != nil {
			return nil, fmt.Errorf("%w: location history: %w", pipeline.ErrConfiguration, err)
		}

		logger.InfoContext(ctx, "loaded location history",
			slog.String("path", c.LocationHistoryPath),
			slog.Int("points", idx.Len()),
			slog.Int("locations", stats.Locations),
			slog.Int("activities", stats.Activities),
			slog.Int("skipped", stats.Skipped),
		)

		b.History = idx
	}

	ffprobe := probe.NewFFprobe(probe.DefaultFFprobe, executor)
	if ffprobe.Available() {
		b.Video = ffprobe
	} else {
		logger.DebugContext(ctx, "ffprobe not found, video probing disabled")
	}

	return b, nil
}

// Package configs provides the Configuration kind: the actions, rulesets
// and metadata sources of a monana installation.
package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/nilp0inter/monana/api"
	"github.com/nilp0inter/monana/api/v1beta1"
	"github.com/nilp0inter/monana/pkg/history"
	"github.com/nilp0inter/monana/pkg/rule"
	"github.com/nilp0inter/monana/pkg/source"
	"github.com/nilp0inter/monana/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen -o configs.v1beta1.json

// Kind is the kind of a [Config] document.
const Kind = "Configuration"

// Geocoder providers.
const (
	ProviderNone      = "none"
	ProviderNominatim = "nominatim"
	ProviderPlaces    = "places"
)

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed configs.v1beta1.json
	schemaJSON []byte

	// ValidKinds lists the kinds handled by this package.
	ValidKinds = []string{Kind}

	// DefaultValidator validates configuration documents against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/configs.v1beta1.json", schemaJSON)

	_ v1beta1.Object = (*Config)(nil)
)

// Config is a monana configuration document.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Actions maps action names to a command line or an argument list.
	// Arguments may use templates, including {target.path}.
	Actions map[string]ActionSpec `json:"actions,omitempty" jsonschema:"title=Actions"`
	// Rulesets maps ruleset names to their definitions.
	Rulesets map[string]*Ruleset `json:"rulesets" jsonschema:"title=Rulesets"`
	// Geocoder resolves coordinates to places.
	Geocoder *Geocoder `json:"geocoder,omitempty" jsonschema:"title=Geocoder"`
	// Watch tunes watch inputs.
	Watch *Watch `json:"watch,omitempty" jsonschema:"title=Watch"`
	// LocationHistoryPath is a Google Takeout location history JSON file.
	LocationHistoryPath string `json:"location_history_path,omitempty" jsonschema:"title=Location History Path"`
	// LocationHistoryMaxOffset bounds the time between a capture and the
	// location history point used for it.
	LocationHistoryMaxOffset string `json:"location_history_max_offset,omitempty" jsonschema:"title=Location History Max Offset"`
	v1beta1.TypeMeta         `json:",inline"`
	// Concurrency bounds the files processed at once. Zero uses every CPU.
	Concurrency int `json:"concurrency,omitempty" jsonschema:"title=Concurrency,minimum=0"`
}

// Ruleset is a named pipeline stage.
type Ruleset struct {
	// Input is "cmdline", "path:<dir>", "watch:<dir>" or "ruleset:<name>".
	Input string `json:"input" jsonschema:"title=Input"`
	// Filter is a CEL expression over file and fs.event, for watch inputs.
	Filter string `json:"filter,omitempty" jsonschema:"title=Filter"`
	// Include globs, relative to the input directory.
	Include []string `json:"include,omitempty" jsonschema:"title=Include"`
	// Exclude globs, relative to the input directory.
	Exclude []string `json:"exclude,omitempty" jsonschema:"title=Exclude"`
	// Rules are tried in order; the first match wins.
	Rules []*rule.Rule `json:"rules" jsonschema:"title=Rules"`
	// Recursive descends into subdirectories.
	Recursive bool `json:"recursive,omitempty" jsonschema:"title=Recursive"`
	// Hidden includes dot-files.
	Hidden bool `json:"hidden,omitempty" jsonschema:"title=Hidden"`
}

// SourceOptions returns the discovery options of r.
func (r *Ruleset) SourceOptions() source.Options {
	return source.Options{
		Include:   r.Include,
		Exclude:   r.Exclude,
		Recursive: r.Recursive,
		Hidden:    r.Hidden,
	}
}

// Geocoder configures reverse geocoding.
type Geocoder struct {
	// Provider is "nominatim", "places" or "none".
	Provider string `json:"provider,omitempty" jsonschema:"title=Provider,enum=nominatim,enum=places,enum=none"`
	// URL of the Nominatim server.
	URL string `json:"url,omitempty" jsonschema:"title=URL"`
	// UserAgent sent to Nominatim.
	UserAgent string `json:"user_agent,omitempty" jsonschema:"title=User Agent"`
	// Language of returned place names.
	Language string `json:"language,omitempty" jsonschema:"title=Language"`
	// PlacesPath is a YAML list of known places, for the places provider.
	PlacesPath string `json:"places_path,omitempty" jsonschema:"title=Places Path"`
	// RadiusKm bounds the distance to the nearest known place. Zero means
	// no bound.
	RadiusKm float64 `json:"radius_km,omitempty" jsonschema:"title=Radius (km),minimum=0"`
}

// Watch configures watch inputs.
type Watch struct {
	// Debounce is how long a file must stay unchanged.
	Debounce string `json:"debounce,omitempty" jsonschema:"title=Debounce"`
	// PollInterval is how often pending files are checked.
	PollInterval string `json:"poll_interval,omitempty" jsonschema:"title=Poll Interval"`
}

// New creates a [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       Kind,
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes unset fields.
func (c *Config) EnsureDefaults() {
	if c.Rulesets == nil {
		c.Rulesets = map[string]*Ruleset{}
	}

	if c.Geocoder == nil {
		c.Geocoder = &Geocoder{}
	}

	if c.Geocoder.Provider == "" {
		c.Geocoder.Provider = ProviderNone
	}

	if c.Watch == nil {
		c.Watch = &Watch{}
	}

	if c.Watch.Debounce == "" {
		c.Watch.Debounce = source.DefaultDebounce.String()
	}

	if c.Watch.PollInterval == "" {
		c.Watch.PollInterval = source.DefaultPollInterval.String()
	}

	if c.LocationHistoryMaxOffset == "" {
		c.LocationHistoryMaxOffset = history.DefaultMaxOffset.String()
	}
}

// Validate compiles every ruleset and checks the remaining settings
// without reading any referenced file.
func (c *Config) Validate() error {
	if err := c.Check(ValidKinds...); err != nil {
		return err
	}

	if _, err := c.Graph(); err != nil {
		return err
	}

	if _, err := c.MaxOffset(); err != nil {
		return err
	}

	if _, _, err := c.WatchTiming(); err != nil {
		return err
	}

	return c.Geocoder.validate()
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// WriteDefault writes the embedded default configuration and its schema
// next to it. It reports whether the configuration was written.
func WriteDefault(path string, force bool) (bool, error) {
	wrote, err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}

	if err := os.WriteFile(SchemaPath(path), schemaJSON, 0o600); err != nil {
		return wrote, fmt.Errorf("write schema: %w", err)
	}

	return wrote, nil
}

// SchemaPath returns where the schema of the configuration at path goes.
func SchemaPath(path string) string {
	return filepath.Join(filepath.Dir(path), "configs.v1beta1.json")
}

// Default returns the embedded default configuration document.
func Default() []byte {
	return defaultConfigYAML
}

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return schemaJSON
}

// GetPath returns the default configuration file path.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}

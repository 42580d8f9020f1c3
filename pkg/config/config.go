// Package config loads and validates the coordinator configuration.
//
// Configuration is a single YAML file. Every field has a sensible default so
// a minimal file only names the manifest checkout, the build, and its
// builders; everything else can be tuned when the defaults stop fitting.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/telemetry"
)

// Build types supported by the coordinator. The build type selects which
// candidate subdirectory of the manifest repository is used.
const (
	BuildTypeBinary = "binary"
	BuildTypeChrome = "chrome"
)

// ManifestsConfig describes the shared manifest repository checkout.
type ManifestsConfig struct {
	// Dir is the local checkout of the manifest repository.
	Dir string `yaml:"dir" validate:"required"`
	// Remote and Branch name where candidates are pushed.
	Remote string `yaml:"remote"`
	Branch string `yaml:"branch"`
	// SourceManifest is the manifest snapshot a new candidate is built from.
	SourceManifest string `yaml:"source_manifest" validate:"required"`
	// VersionFile holds the platform version components.
	VersionFile string `yaml:"version_file" validate:"required"`
}

// BuildConfig identifies this coordinator and the fleet it waits for.
type BuildConfig struct {
	Name     string   `yaml:"name" validate:"required"`
	Type     string   `yaml:"type" validate:"oneof=binary chrome"`
	Builders []string `yaml:"builders" validate:"min=1,dive,required"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// CoordinationConfig tunes retries and the status poll loop.
type CoordinationConfig struct {
	CreateRetries  int      `yaml:"create_retries" validate:"min=0"`
	LatestRetries  int      `yaml:"latest_retries" validate:"min=0"`
	PromoteRetries int      `yaml:"promote_retries" validate:"min=0"`
	PollInterval   Duration `yaml:"poll_interval" validate:"min=1"`
	StatusTimeout  Duration `yaml:"status_timeout" validate:"min=1"`
}

// HistoryConfig configures the local candidate ledger.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path of the SQLite database file.
	Path string `yaml:"path"`
	// Retention bounds how far back the ledger is kept; zero keeps forever.
	Retention Duration `yaml:"retention"`
}

// Config is the full coordinator configuration.
type Config struct {
	Manifests    ManifestsConfig    `yaml:"manifests"`
	Build        BuildConfig        `yaml:"build"`
	Coordination CoordinationConfig `yaml:"coordination"`
	History      HistoryConfig      `yaml:"history"`
	Telemetry    telemetry.Config   `yaml:"telemetry"`
}

// Default returns a configuration with every tunable at its default. The
// required manifest and build fields are left empty and must come from the
// file.
func Default() *Config {
	return &Config{
		Manifests: ManifestsConfig{
			Remote: "origin",
			Branch: "master",
		},
		Build: BuildConfig{
			Type: BuildTypeBinary,
		},
		Coordination: CoordinationConfig{
			CreateRetries:  lkgm.DefaultCreateRetries,
			LatestRetries:  lkgm.DefaultLatestRetries,
			PromoteRetries: lkgm.DefaultPromoteRetries,
			PollInterval:   Duration(lkgm.DefaultPollInterval),
			StatusTimeout:  Duration(lkgm.DefaultStatusTimeout),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "lkgm-history.db",
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads a YAML configuration file, applies defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration using struct tags plus the cross-field
// rules tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history is enabled but no database path is set")
	}
	if c.Coordination.PollInterval > c.Coordination.StatusTimeout {
		return fmt.Errorf("poll interval %s exceeds the status timeout %s",
			c.Coordination.PollInterval.Std(), c.Coordination.StatusTimeout.Std())
	}

	return nil
}

// Subdir returns the candidate subdirectory for the configured build type.
func (c *Config) Subdir() string {
	if c.Build.Type == BuildTypeChrome {
		return lkgm.SubdirChrome
	}
	return lkgm.SubdirBinary
}

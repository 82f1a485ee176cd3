// Package config loads userscript settings from defaults, an optional YAML
// file and USERSCRIPT_* environment variables, in that order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. USERSCRIPT_DB_PATH.
const EnvPrefix = "USERSCRIPT"

//go:embed schema.cue
var schemaCUE string

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all userscript settings.
//
// Environment keys are EnvPrefix, the section and the field name split on
// word boundaries: Delivery.ChunkSize is USERSCRIPT_DELIVERY_CHUNK_SIZE.
type Config struct {
	DB       DBConfig       `yaml:"db"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Log      LogConfig      `yaml:"log"`
	Browser  BrowserConfig  `yaml:"browser"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Devtools DevtoolsConfig `yaml:"devtools"`
}

// DBConfig selects the script store.
type DBConfig struct {
	Driver string `yaml:"driver" split_words:"true"`
	Path   string `yaml:"path" split_words:"true"`
}

// DeliveryConfig holds transport limits. Zero keeps the built-in value.
type DeliveryConfig struct {
	MaxLength    int `yaml:"max_length" split_words:"true"`
	SafetyMargin int `yaml:"safety_margin" split_words:"true"`
	ChunkSize    int `yaml:"chunk_size" split_words:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level" split_words:"true"`
	Format     string `yaml:"format" split_words:"true"`
	File       string `yaml:"file" split_words:"true"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true"`
	MaxBackups int    `yaml:"max_backups" split_words:"true"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true"`
	Compress   bool   `yaml:"compress" split_words:"true"`
}

// BrowserConfig holds the DevTools host settings.
type BrowserConfig struct {
	RemoteURL   string `yaml:"remote_url" split_words:"true"`
	Headless    bool   `yaml:"headless" split_words:"true"`
	UserDataDir string `yaml:"user_data_dir" split_words:"true"`
	Binding     string `yaml:"binding" split_words:"true"`
	StartURL    string `yaml:"start_url" split_words:"true"`
}

// MetricsConfig holds the metrics endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" split_words:"true"`
}

// DevtoolsConfig points at the devtools panel source.
type DevtoolsConfig struct {
	SourcePath string `yaml:"source_path" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DB: DBConfig{
			Driver: "sqlite",
			Path:   "userscripts.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Browser: BrowserConfig{
			Headless: true,
			Binding:  "userscript",
		},
	}
}

// Load builds the configuration. path may be empty to skip the file.
// Environment variables override file values, which override defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode validates YAML data against the schema and applies it over cfg.
// Keys absent from data leave cfg unchanged.
func Decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if raw == nil {
		return nil
	}
	if err := validateSchema(raw); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func validateSchema(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(raw)
	if err := val.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Validate checks constraints that span fields or come from the environment.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("%w: db.driver %q (want sqlite or bolt)", ErrInvalid, c.DB.Driver)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("%w: db.path is empty", ErrInvalid)
	}
	if c.Delivery.MaxLength < 0 || c.Delivery.SafetyMargin < 0 || c.Delivery.ChunkSize < 0 {
		return fmt.Errorf("%w: delivery limits must not be negative", ErrInvalid)
	}
	if c.Delivery.MaxLength > 0 && c.Delivery.SafetyMargin >= c.Delivery.MaxLength {
		return fmt.Errorf("%w: delivery.safety_margin %d must be below max_length %d",
			ErrInvalid, c.Delivery.SafetyMargin, c.Delivery.MaxLength)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q (want json or console)", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Package config loads engine settings from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/zoobzio/typedjson"
)

// Error modes.
const (
	ErrorModeLog  = "log"
	ErrorModeFail = "fail"
)

// Config holds the engine settings that can be set outside code.
type Config struct {
	// Discriminator is the property carrying type hints.
	Discriminator string `mapstructure:"discriminator"`

	// ErrorMode selects the error handler: "log" continues past contained
	// errors, "fail" aborts on the first one.
	ErrorMode string `mapstructure:"error_mode"`

	// Options is the global option scope. Unrecognised keys are ignored.
	Options map[string]any `mapstructure:"options"`
}

// Load reads settings from path, or from typedjson.{yaml,json,toml} in the
// working directory when path is empty. TYPEDJSON_* environment variables
// override file values. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("typedjson")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an existing viper instance, applying
// defaults and environment overrides.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("discriminator", typedjson.DefaultDiscriminator)
	v.SetDefault("error_mode", ErrorModeLog)
	v.SetEnvPrefix("TYPEDJSON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EngineOptions converts the settings to engine options.
func (c *Config) EngineOptions() []typedjson.Option {
	opts := []typedjson.Option{typedjson.WithDiscriminator(c.Discriminator)}
	if c.ErrorMode == ErrorModeFail {
		opts = append(opts, typedjson.WithErrorHandler(typedjson.FailFast))
	}
	if o, ok := typedjson.ExtractOptions(c.Options); ok {
		opts = append(opts, typedjson.WithGlobalOptions(o))
	}
	return opts
}

// NewEngine creates an engine over reg configured by c.
func (c *Config) NewEngine(reg *typedjson.Registry) *typedjson.Engine {
	return typedjson.New(reg, c.EngineOptions()...)
}

func validate(cfg *Config) error {
	if cfg.Discriminator == "" {
		return fmt.Errorf("discriminator must not be empty")
	}
	switch cfg.ErrorMode {
	case ErrorModeLog, ErrorModeFail:
	default:
		return fmt.Errorf("error_mode must be %q or %q, got: %s", ErrorModeLog, ErrorModeFail, cfg.ErrorMode)
	}
	return nil
}

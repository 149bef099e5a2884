// Package config provides configuration types and defaults for comfymeta.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration options for comfymeta.
type Config struct {
	Log           LogConfig `mapstructure:"log"`
	Output        string    `mapstructure:"output"`          // "json" (default) or "yaml"
	Workers       int       `mapstructure:"workers"`         // files parsed concurrently
	MaxInputBytes int64     `mapstructure:"max_input_bytes"` // larger inputs are rejected
	Progress      bool      `mapstructure:"progress"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" (default) or "json"
}

const EnvPrefix = "COMFYMETA"

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output:        "json",
		Workers:       4,
		MaxInputBytes: 64 << 20,
		Progress:      true,
	}
}

var (
	ErrInvalidOutput  = errors.New("output must be json or yaml")
	ErrInvalidFormat  = errors.New("log format must be text or json")
	ErrInvalidWorkers = errors.New("workers must be at least 1")
	ErrInvalidLimit   = errors.New("max_input_bytes must be positive")
)

func (c Config) Validate() error {
	switch c.Output {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.Output)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Log.Format)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if c.MaxInputBytes <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// SetDefaults registers every default with v so that environment variables
// and config files can override single keys.
func SetDefaults(v *viper.Viper) {
	defaults := Defaults()
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("max_input_bytes", defaults.MaxInputBytes)
	v.SetDefault("progress", defaults.Progress)
}

// Load reads the configuration into v and decodes it.  Lookup order for
// the config file:
//  1. cfgFile when set
//  2. ./comfymeta.yaml
//  3. ~/.config/comfymeta/config.yaml
//
// A missing config file is not an error unless it was named explicitly.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if _, err := os.Stat("comfymeta.yaml"); err == nil {
		v.SetConfigFile("comfymeta.yaml")
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "comfymeta"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings; fields tagged
// `required` that are missing produce an error.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	return LoadWithOptions(cfg, env.Options{})
}

// LoadFromMap parses the given key/value pairs instead of the process
// environment. Tests use it to build configs without touching os.Environ.
func LoadFromMap(cfg any, vars map[string]string) error {
	return LoadWithOptions(cfg, env.Options{Environment: vars})
}

// LoadWithOptions parses configuration with explicit caarlos0/env options.
func LoadWithOptions(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Load reads environment variables into a fresh value of T. Mappings and
// defaults come from the `env` and `envDefault` struct tags:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
// Validation beyond tag defaults is the caller's responsibility.
func Load[T any]() (T, error) {
	cfg, err := env.ParseAs[T]()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Package config reads the server configuration from environment variables
// (and a .env file when present).
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Token
	Store
}

var _ Config = mainConfig{}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; variables already set win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := mainConfig{}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

func (c mainConfig) validate() error {
	if err := c.Store.validate(); err != nil {
		return err
	}
	return c.Token.validate()
}

package config

import (
	"github.com/pkg/errors"
)

// Credential store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetBoltPath() string
	GetDatabaseURL() string
	GetSeedFile() string
}

type Store struct {
	Backend        string `env:"STORE" envDefault:"memory"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"tokensrv:"`
	BoltPath       string `env:"BOLT_PATH" envDefault:"./data/tokens.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SeedFile       string `env:"SEED_FILE"`
}

var _ StoreConfig = Store{}

func (s Store) validate() error {
	switch s.Backend {
	case StoreMemory, StoreRedis, StoreBolt:
		return nil
	case StorePostgres:
		if s.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
		return nil
	default:
		return errors.Errorf("unknown STORE %q (want memory, redis, bolt or postgres)", s.Backend)
	}
}

func (s Store) GetStoreBackend() string {
	return s.Backend
}

func (s Store) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Store) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Store) GetRedisDB() int {
	return s.RedisDB
}

func (s Store) GetRedisKeyPrefix() string {
	return s.RedisKeyPrefix
}

func (s Store) GetBoltPath() string {
	return s.BoltPath
}

func (s Store) GetDatabaseURL() string {
	return s.DatabaseURL
}

// GetSeedFile returns the YAML file loaded into the store at startup, if any.
func (s Store) GetSeedFile() string {
	return s.SeedFile
}

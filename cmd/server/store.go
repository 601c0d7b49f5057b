package main

import (
	"context"

	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/credstore/boltstore"
	"github.com/jrsteele09/go-token-server/credstore/memory"
	"github.com/jrsteele09/go-token-server/credstore/pgstore"
	"github.com/jrsteele09/go-token-server/credstore/redisstore"
	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// openedStore is the configured credential store plus its optional purge of
// expired refresh tokens (nil when the backend expires them itself).
type openedStore struct {
	credstore.Store
	purge func(context.Context) (int, error)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*openedStore, error) {
	backend := cfg.GetStoreBackend()
	log.Info().Str("store", backend).Msg("opening credential store")

	switch backend {
	case config.StoreMemory:
		s := memory.New()
		return &openedStore{Store: s}, nil

	case config.StoreRedis:
		s, err := redisstore.New(ctx, redisstore.Config{
			Addr:      cfg.GetRedisAddr(),
			Password:  cfg.GetRedisPassword(),
			DB:        cfg.GetRedisDB(),
			KeyPrefix: cfg.GetRedisKeyPrefix(),
		})
		if err != nil {
			return nil, err
		}
		return &openedStore{Store: s}, nil

	case config.StoreBolt:
		s, err := boltstore.Open(cfg.GetBoltPath())
		if err != nil {
			return nil, err
		}
		return &openedStore{Store: s, purge: s.PurgeExpired}, nil

	case config.StorePostgres:
		s, err := pgstore.New(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		purge := func(ctx context.Context) (int, error) {
			n, err := s.PurgeExpired(ctx)
			return int(n), err
		}
		return &openedStore{Store: s, purge: purge}, nil
	}
	return nil, errors.Errorf("unknown store backend %q", backend)
}

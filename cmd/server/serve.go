package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-token-server/auth"
	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/jrsteele09/go-token-server/internal/logging"
	"github.com/jrsteele09/go-token-server/internal/metrics"
	"github.com/jrsteele09/go-token-server/server"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	purgeInterval   = 10 * time.Minute
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the token endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.GetEnv(), cfg.GetLogLevel()); err != nil {
		log.Warn().Err(err).Msg("falling back to info level")
	}
	displayAppname(cfg.GetAppName())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if seedFile := cfg.GetSeedFile(); seedFile != "" {
		n, err := credstore.SeedFromFile(ctx, store, seedFile)
		if err != nil {
			return err
		}
		log.Info().Int("records", n).Str("file", seedFile).Msg("credential store seeded")
	}

	authConfig := auth.NewConfiguration(
		cfg.GetAccessTokenLifetimeMinutes(),
		cfg.GetRefreshTokenLifetimeMinutes(),
		cfg.GetRequestScope(),
		auth.WithRefreshTokenRotation(cfg.GetRotateRefreshTokens()),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return errors.Wrap(err, "metrics")
	}

	provider, err := auth.NewProvider(store, authConfig, auth.WithOutcomeRecorder(m))
	if err != nil {
		return err
	}

	signer, err := newSigner(cfg.GetSigningKey())
	if err != nil {
		return err
	}
	encoder, err := token.NewEncoder(signer, authConfig.AccessTokenLifetime, token.WithIssuer(cfg.GetIssuer()))
	if err != nil {
		return err
	}

	options := []server.Option{server.WithMetrics(m)}
	if pinger, ok := store.Store.(credstore.Pinger); ok {
		options = append(options, server.WithHealthCheck(pinger.Ping))
	}
	handler, err := server.New(cfg, provider, encoder, options...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("store", cfg.GetStoreBackend()).
		Dur("access_token_lifetime", authConfig.AccessTokenLifetime).
		Dur("refresh_token_lifetime", authConfig.RefreshTokenLifetime).
		Bool("rotate_refresh_tokens", authConfig.RotateRefreshTokens).
		Msg("token pipeline configured")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})
	if store.purge != nil {
		g.Go(func() error {
			purgeLoop(gctx, store.purge)
			return nil
		})
	}

	returnError = g.Wait()
	log.Info().Msg("server stopped")
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// purgeLoop removes expired refresh token records from stores that do not
// expire them natively.
func purgeLoop(ctx context.Context, purge func(context.Context) (int, error)) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("refresh token purge failed")
				continue
			}
			if n > 0 {
				log.Info().Int("purged", n).Msg("expired refresh tokens removed")
			}
		}
	}
}

// newSigner builds the HMAC signer. Without a configured key a random one is
// generated, so tokens do not survive a restart.
func newSigner(key string) (*token.HMACsigner, error) {
	if key == "" {
		secret := make([]byte, token.MinHMACSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.Wrap(err, "generate signing key")
		}
		key = hex.EncodeToString(secret)
		log.Warn().Msg("SIGNING_KEY not set, using a random key; issued tokens are invalidated on restart")
	}
	return token.NewHMACSigner(key)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

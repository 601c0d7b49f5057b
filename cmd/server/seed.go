package main

import (
	"github.com/jrsteele09/go-token-server/credstore"
	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/jrsteele09/go-token-server/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load users and clients from a YAML file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_ = logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := credstore.SeedFromFile(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			log.Info().Int("records", n).Str("store", cfg.GetStoreBackend()).Msg("seed complete")
			return nil
		},
	}
}

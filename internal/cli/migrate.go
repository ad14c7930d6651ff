package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arklim/residency-registry/internal/infra/config"
	"github.com/arklim/residency-registry/internal/infra/database"
	"github.com/arklim/residency-registry/internal/infra/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.Driver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate requires store.driver=%s, got %q", config.StoreDriverPostgres, cfg.Store.Driver)
			}

			log, err := logger.New(cfg.App.Env)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			pool, err := database.NewPostgresPool(cmd.Context(), cfg.Postgres, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(cmd.Context(), pool, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

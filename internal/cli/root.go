// Package cli implements registryctl, the operator tool for bootstrapping
// accounts and inspecting the activity log without going through the API.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/infra/app"
	"github.com/arklim/residency-registry/internal/infra/config"
	kafkainfra "github.com/arklim/residency-registry/internal/infra/kafka"
	"github.com/arklim/residency-registry/internal/infra/logger"
	"github.com/arklim/residency-registry/internal/transport/http/routes"
)

// operatorActor is recorded as performedBy for changes made through the CLI.
const operatorActor = "registryctl"

var errSubcommandRequired = errors.New("a subcommand is required")

// loadConfig is swapped in tests.
var loadConfig = config.Load

type session struct {
	cfg      *config.AppConfig
	log      *zap.Logger
	stores   *app.Stores
	services routes.ServiceSet
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	services, err := app.NewServices(cfg, stores, kafkainfra.NewStubPublisher(log), nil, log)
	if err != nil {
		stores.Close()
		return nil, err
	}
	return &session{cfg: cfg, log: log, stores: stores, services: services}, nil
}

func (r *session) Close() {
	r.stores.Close()
	_ = r.log.Sync()
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	_ = cmd.Help()
	return errSubcommandRequired
}

// NewRootCommand assembles the registryctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "registryctl",
		Short: "Operate the residency registry",
		Long: `registryctl talks to the configured store directly, using the same
REGISTRY_* environment as the API server.

Examples:
  registryctl user create alice --role admin --password 's3cret!'
  registryctl user list
  registryctl logs --limit 20
  registryctl migrate`,
		SilenceUsage: true,
		RunE:         requireSubcommand,
	}

	root.AddCommand(newUserCommand())
	root.AddCommand(newLogsCommand())
	root.AddCommand(newMigrateCommand())
	return root
}

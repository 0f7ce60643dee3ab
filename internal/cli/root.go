// Package cli wires the prebook commands: the HTTP server plus the
// maintenance tools that share its configuration and store.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/config"
	"github.com/okian/prebook/pkg/logger"
)

// app carries state shared by every command.
type app struct {
	cfgPath string
	cfg     *config.Config
	log     logger.Logger
}

// NewRootCommand builds the prebook command tree. Running it without a
// subcommand serves HTTP.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "prebook",
		Short:         "Satellite internet pre-booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), nil)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "YAML config file (overrides PREBOOK_CONFIG)")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newSeedCommand(a),
		newOrdersCommand(a),
		newPlansCommand(a),
		newImportCommand(a),
		newExportCommand(a),
		newHashPasswordCommand(),
		newSimulateCommand(),
	)
	return root
}

// Execute runs the command tree with args taken from os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init(ctx context.Context) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	a.log = logger.Get()

	var err error
	if a.cfgPath != "" {
		a.cfg, err = config.LoadFrom(ctx, a.cfgPath)
	} else {
		a.cfg, err = config.Load(ctx)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Invalid levels fall back to info.
	if err := logger.SetLevelString(a.cfg.LogLevel); err != nil {
		a.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", a.cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// openStore opens and migrates the configured database.
func (a *app) openStore(ctx context.Context) (*repository.DB, error) {
	db, err := repository.Open(ctx, a.cfg.DBDriver, a.cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return db, nil
}

func (a *app) closeStore(ctx context.Context, db *repository.DB) {
	if err := db.Close(); err != nil {
		a.log.Warn(ctx, "close store", logger.Error(err))
	}
}

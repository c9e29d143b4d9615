package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"familia/internal/config"
	"familia/internal/database"
	"familia/internal/logging"
	"familia/migrations"
)

func main() {
	logging.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. loadConfig is called once per
// command that needs the database.
func newRootCmd(loadConfig func() *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "familiactl",
		Short:        "Administration tool for the familia server",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(loadConfig),
		newReconcileCmd(loadConfig),
		newBackupCmd(loadConfig),
		newQRCmd(),
	)
	return root
}

// openDatabase connects with the configured dialect and applies migrations
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, err
	}

	var migrationsFS fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		migrationsFS = os.DirFS(cfg.MigrationsPath)
	}
	if err := db.RunMigrations(ctx, migrationsFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func newMigrateCmd(loadConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", cfg.DatabaseType)
			return nil
		},
	}
}

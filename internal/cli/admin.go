package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/dbx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/config"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/repomanager"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/retention"
)

// loadServerConfig loads the server config the same way the server does,
// with the JSON file at path when set.
func loadServerConfig(path string) (*config.Config, error) {
	var args []string
	if path != "" {
		args = []string{"-c", path}
	}
	return config.LoadConfig(args)
}

func migrateCmd(s Streams) *cobra.Command {
	var configPath, driver, dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig(configPath)
			if err != nil {
				return err
			}
			if driver != "" {
				cfg.DatabaseDriver = driver
			}
			if dsn != "" {
				cfg.DatabaseDSN = dsn
			}

			ctx := commandContext(cmd)

			db, err := dbx.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			rm, err := repomanager.NewSQLRepositoryManager(cfg.DatabaseDriver)
			if err != nil {
				return err
			}
			if err := rm.RunMigrations(ctx, db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintln(s.Out, "Migrations applied.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "server JSON config file")
	cmd.Flags().StringVar(&driver, "driver", "", "database driver: pgx or sqlite (overrides config)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (overrides config)")
	return cmd
}

func sweepCmd(s Streams) *cobra.Command {
	var configPath string
	var retentionOverride time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one retention pass over the object store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("retention") {
				cfg.Retention = retentionOverride
			}
			if cfg.Retention <= 0 {
				fmt.Fprintln(s.Out, "Retention is disabled; nothing to do.")
				return nil
			}

			ctx := commandContext(cmd)

			store, err := server.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			log := logging.New(s.Err, cfg.LogLevel)
			n, err := retention.NewSweeper(store, cfg.Retention, cfg.SweepInterval, log).SweepOnce(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed after %d deletions: %w", n, err)
			}

			fmt.Fprintf(s.Out, "Deleted %d object(s) older than %s.\n", n, cfg.Retention)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "server JSON config file")
	cmd.Flags().DurationVar(&retentionOverride, "retention", 0, "override the configured retention")
	return cmd
}

// Package migrate implements the `migrate` command: apply the schema and
// exit.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"blocklotto/internal/infrastructure/config"
	"blocklotto/internal/infrastructure/database"
	"blocklotto/internal/infrastructure/migration"
	"blocklotto/internal/shared/logger"
)

// NewCommand builds the migrate command.
func NewCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	return cmd
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.NewLogger()

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	if err := migration.NewManager(log).Migrate(database.Get(), cfg.Server.Mode); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	log.Infow("migration complete")
	return nil
}

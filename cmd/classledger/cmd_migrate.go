package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/classledger/internal/platform/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := migrations.Apply(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN); err != nil {
			return err
		}
		log.WithField("driver", cfg.Database.Driver).Info("migrations applied")
		return nil
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateDownSteps <= 0 {
			return fmt.Errorf("--steps must be positive")
		}
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := migrations.Rollback(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, migrateDownSteps); err != nil {
			return err
		}
		log.WithField("steps", migrateDownSteps).Info("migrations rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		version, dirty, err := migrations.Version(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dirty {
			fmt.Fprintf(out, "%d (dirty)\n", version)
			return nil
		}
		fmt.Fprintln(out, version)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

// Command classledger runs the training-school back office API and its
// administrative tasks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/R3E-Network/classledger/internal/app"
	"github.com/R3E-Network/classledger/internal/app/runtime"
	"github.com/R3E-Network/classledger/internal/config"
	"github.com/R3E-Network/classledger/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "classledger",
	Short: "Class-hour ledger and profit reporting for training schools",
	Long: `classledger tracks students, purchased and consumed class hours,
deduction rules and profit, and serves them over a role-gated JSON API.

Configuration is read from the environment (and .env when present).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, usersCmd, statusCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New("classledger", cfg.Logging.Level, cfg.Logging.Format), nil
}

// withApp builds the services over the configured database for the duration
// of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	application, db, _, err := runtime.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, application)
}

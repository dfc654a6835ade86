package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/classledger/internal/app/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appRuntime, err := runtime.NewApplication(ctx, cfg, log)
	if err != nil {
		return err
	}

	runErr := appRuntime.Run(ctx)
	log.Info("shutting down")
	if err := appRuntime.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("shutdown failed")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

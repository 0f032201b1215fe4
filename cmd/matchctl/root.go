package main

import (
	"context"
	"fmt"

	"gig-match/internal/app"
	"gig-match/internal/config"
	"gig-match/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const appName = "matchctl"

var (
	debugLog bool
	jsonLog  bool

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "matchctl runs gig-match maintenance tasks against the configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugLog, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

// withContainer loads config from the environment, wires a container and
// hands it to fn. Background workers other than notifications stay off.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lg, err := logger.New(jsonLog || cfg.App.LogJSON, debugLog || cfg.App.LogDebug)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := app.NewContainer(ctx, cfg, lg.With(zap.String("cli", appName)))
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			lg.Warn("cleanup error", zap.Error(err))
		}
	}()

	c.Dispatcher.Start(ctx)
	return fn(ctx, c)
}

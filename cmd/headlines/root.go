package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/headlines-scraper/internal/app"
	"github.com/JakeFAU/headlines-scraper/internal/config"
	"github.com/JakeFAU/headlines-scraper/internal/logging"
)

type envKey struct{}

// env carries the services built once in PersistentPreRunE.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	app    *app.App
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "headlines",
		Short: "Scrapes news headlines into a store and serves them over HTTP.",
		Long: `headlines fetches a news listing page, extracts each headline, intro and
link, stores new articles and exposes them through a small JSON API.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: cfg, logger: logger, app: a}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a config file (env vars use the HEADLINES_ prefix)")
	cmd.AddCommand(newServeCmd(), newScrapeCmd())
	return cmd
}

func (e *env) close() {
	e.app.Close()
	_ = e.logger.Sync()
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey{}).(*env)
	if !ok || e == nil {
		return nil, errors.New("application services not initialized")
	}
	return e, nil
}

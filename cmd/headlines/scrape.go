package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape pass and prints its summary",
		Long: `Fetches the configured listing page once, stores any new articles and
prints the pass summary as JSON. Exits non-zero when the pass fails.`,
		RunE: runScrape,
	}
}

func runScrape(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	res, runErr := e.app.Pipeline().Run(cmd.Context())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("scrape pass: %w", runErr)
	}
	return nil
}

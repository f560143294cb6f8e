package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// newExtractCmd creates the 'extract' subcommand, which prints one brand profile as JSON.
func newExtractCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extracts the brand profile of one website",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractCommand(cmd, args[0], refresh)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache")
	return cmd
}

func runExtractCommand(cmd *cobra.Command, rawURL string, refresh bool) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := brand.Normalize(rawURL); err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer app.Close()

	result, err := app.Extractor().Extract(cmd.Context(), rawURL, brand.ExtractOptions{SkipCache: refresh})
	if err != nil {
		return fmt.Errorf("extract %s: %w", rawURL, err)
	}
	rt.logger.Debug("extraction finished",
		zap.String("url", rawURL),
		zap.String("outcome", string(result.Outcome)),
	)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

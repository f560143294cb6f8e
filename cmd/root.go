// Package cmd defines and implements the CLI commands for the brandprobe executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/config"
	"github.com/JakeFAU/brandprobe/internal/logging"
	"github.com/JakeFAU/brandprobe/internal/server"
)

type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// cliEnv carries the loaded configuration and logger to subcommands.
type cliEnv struct {
	cfg    config.Config
	logger *zap.Logger
}

// buildApp is the application factory.
var buildApp = server.Build

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "brandprobe",
		Short: "Extracts logos and brand colours from websites.",
		Long: `brandprobe derives a brand profile (logo, brand colour, industry and
alternative logos) from a website address. It runs as an HTTP service
with batch jobs and an onboarding wizard, or as a one-shot CLI.`,
		SilenceUsage: true,

		// Config and logger are built once here and shared with every subcommand.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), runtimeKey, &cliEnv{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*cliEnv); ok && rt != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); BRANDPROBE_* env vars override it")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExtractCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*cliEnv, error) {
	rt, ok := ctx.Value(runtimeKey).(*cliEnv)
	if !ok || rt == nil {
		return nil, errors.New("configuration not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cli implements the whiterabbit commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/config"
	"whiterabbit/internal/eventbus"
	"whiterabbit/internal/logging"
)

var (
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "whiterabbit",
	Short: "Explore the White Rabbit mysteries API",
	Long: "whiterabbit serves a browser-facing gateway in front of the White Rabbit API " +
		"and offers a terminal browser and one-shot lookups over the same data.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.config/whiterabbit/config.toml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// loadConfig reads and validates the config file. bus may be nil.
func loadConfig(bus eventbus.EventBus) (config.ConfigService, *config.Config, error) {
	svc := config.NewConfigService(configPath, bus)
	cfg, err := svc.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", svc.Path(), err)
	}
	return svc, cfg, nil
}

func newLogger(cfg *config.Config, path string) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, path)
}

func newClient(cfg *config.Config, logger *zap.Logger) *apiclient.Client {
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.API.Timeout.Std()),
		apiclient.WithLogger(logger),
	}
	if cfg.API.APIKey != "" {
		opts = append(opts, apiclient.WithAPIKey(cfg.API.APIKey))
	}
	return apiclient.New(cfg.API.BaseURL, opts...)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

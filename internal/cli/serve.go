package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whiterabbit/internal/gateway"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway in front of the backend API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("listen", "l", "", "Listen address (overrides gateway.listen)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Gateway.Listen = listen
	}

	logger, err := newLogger(cfg, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := gateway.New(newClient(cfg, logger), gateway.Options{
		Addr:            cfg.Gateway.Listen,
		UpstreamTimeout: cfg.Gateway.UpstreamTimeout.Std(),
		RateLimit:       cfg.Gateway.RateLimit,
		Burst:           cfg.Gateway.Burst,
		AllowedOrigin:   cfg.Gateway.AllowedOrigin,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting gateway",
		zap.String("listen", cfg.Gateway.Listen),
		zap.String("upstream", cfg.API.BaseURL),
	)
	if err := srv.Run(cmd.Context()); err != nil {
		logger.Error("gateway stopped", zap.Error(err))
		return err
	}
	return nil
}

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"whiterabbit/internal/stores/detail"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mystery <id>",
		Short: "Show one mystery with its locations, eras and similar cases",
		Args:  cobra.ExactArgs(1),
		RunE:  runMystery,
	}

	RootCmd.AddCommand(cmd)
}

func runMystery(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := detail.New(newClient(cfg, logger), detail.Options{Timeout: cfg.API.Timeout.Std(), Logger: logger})
	m, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return errors.New(detail.Message(err))
	}
	return printJSON(cmd, m)
}

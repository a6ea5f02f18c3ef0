package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfig,
	}

	cmd.Flags().Bool("write", false, "Write the effective configuration to the config file")

	RootCmd.AddCommand(cmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	svc, cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	if write, _ := cmd.Flags().GetBool("write"); write {
		if err := svc.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", svc.Path())
		return nil
	}

	enc := toml.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(cfg)
}

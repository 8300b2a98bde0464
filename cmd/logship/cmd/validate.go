package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Loads the configuration and reports any problems with it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !config.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid; log forwarding is disabled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid; forwarding to %s table %s.%s.%s\n",
				config.Forwarder.Sink.Driver, config.Forwarder.Sink.Database, config.Forwarder.Sink.Schema,
				config.Forwarder.Sink.TableName)
			return nil
		},
	}
	return cmd
}

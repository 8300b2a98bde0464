package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	commonconfig "github.com/G-Research/logship/internal/common/config"
	"github.com/G-Research/logship/internal/logship/configuration"
)

const (
	CustomConfigLocation string = "config"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "logship",
		SilenceUsage: true,
		Short:        "Forwards structured log events to a warehouse table in batches",
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	cmd.PersistentFlags().Uint16(
		"metricsPort",
		configuration.DefaultMetricsPort,
		"Port to serve prometheus metrics on, 0 to disable")

	cmd.AddCommand(
		runCmd(),
		validateCmd(),
	)

	return cmd
}

func loadConfig(cmd *cobra.Command) (configuration.AppConfig, error) {
	var config configuration.AppConfig
	userSpecifiedConfigs, err := cmd.Flags().GetStringSlice(CustomConfigLocation)
	if err != nil {
		return config, err
	}

	v := viper.New()
	configuration.SetDefaults(v)
	commonconfig.BindCommandlineArguments(v, cmd.Flags())
	if err := commonconfig.LoadConfig(v, &config, configuration.EnvPrefix, userSpecifiedConfigs); err != nil {
		return config, err
	}
	return config, config.Validate()
}

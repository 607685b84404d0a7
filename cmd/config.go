package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwtone/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  `Print the settings after the config file and flags are applied, in config file format.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		out, err := config.Dump(settings)
		if err != nil {
			return err
		}
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", file)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

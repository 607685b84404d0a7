package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwtone/internal/cli/decode"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Long:  `List the capture devices the audio backend can see. Use the index with --device or device_index.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		devices, err := decode.ListAudioDevices()
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no capture devices found")
			return nil
		}
		for _, d := range devices {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

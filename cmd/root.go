// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/ColonelBlimp/cwtone/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cwtone",
	Short: "Single-tone CW (Morse code) decoder",
	Long: `cwtone measures the power of one audio tone with a Goertzel filter and turns
its on/off timing into Morse characters, from a sound card or a WAV file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 700, "CW tone frequency in Hz")
	rootCmd.PersistentFlags().IntP("block-size", "b", 240, "samples per detection window")
	rootCmd.PersistentFlags().Float64P("threshold", "t", 0.01, "tone power threshold (full scale sine = 1.0)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	bindFlags()
}

// bindFlags binds the global flags to their config keys
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	viper.BindPFlag("device_index", flags.Lookup("device"))
	viper.BindPFlag("tone_frequency", flags.Lookup("frequency"))
	viper.BindPFlag("block_size", flags.Lookup("block-size"))
	viper.BindPFlag("power_threshold", flags.Lookup("threshold"))
	viper.BindPFlag("debug", flags.Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings returns the validated settings for a command
func loadSettings() (*config.Settings, error) {
	s, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

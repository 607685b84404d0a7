package cmd

import (
	"fmt"
	"time"

	"github.com/ColonelBlimp/cwtone/internal/audio"
	"github.com/ColonelBlimp/cwtone/internal/dsp"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Find the dominant tone in a WAV recording",
	Long: `Find the strongest tone in a 16-bit PCM WAV file, to help choose tone_frequency.
The whole file is averaged, so record a stretch of the signal you want to decode.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("fft-size", 4096, "FFT length in samples")
	analyzeCmd.Flags().Float64("min", 100, "lowest frequency to search in Hz")
	analyzeCmd.Flags().Float64("max", 3000, "highest frequency to search in Hz")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fftSize, _ := cmd.Flags().GetInt("fft-size")
	minFreq, _ := cmd.Flags().GetFloat64("min")
	maxFreq, _ := cmd.Flags().GetFloat64("max")

	wav, err := audio.OpenWAV(args[0], fftSize, time.Time{})
	if err != nil {
		return err
	}
	defer wav.Close()

	samples, err := audio.ReadAll(cmd.Context(), wav)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	analyzer, err := dsp.NewSpectrumAnalyzer(float64(wav.SampleRate()), fftSize)
	if err != nil {
		return err
	}
	if nyquist := float64(wav.SampleRate()) / 2; maxFreq > nyquist {
		maxFreq = nyquist
	}
	peak, err := analyzer.DominantFrequency(samples, minFreq, maxFreq)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dominant tone: %.1f Hz (magnitude %.3f)\n", peak.Frequency, peak.Magnitude)
	fmt.Fprintf(out, "tone_frequency: %.0f\n", peak.Frequency)
	return nil
}

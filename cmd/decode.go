package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/cwtone/internal/audio"
	"github.com/ColonelBlimp/cwtone/internal/cli/decode"
	"github.com/ColonelBlimp/cwtone/internal/config"
	"github.com/ColonelBlimp/cwtone/internal/recovery"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the wait for the session to flush after an interrupt
const shutdownTimeout = 3 * time.Second

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode CW from the sound card or a WAV file",
	Long: `Decode CW from the configured capture device, or from a 16-bit PCM WAV file
with --file. Decoded text is written to stdout; events also go to MQTT and the
SQLite journal when those are enabled in the config file.`,
	Args: cobra.NoArgs,
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringP("file", "i", "", "decode a 16-bit PCM WAV file instead of live audio")
	rootCmd.AddCommand(decodeCmd)
}

type decodeResult struct {
	stats decode.Stats
	err   error
}

func runDecode(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("file")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := openSource(ctx, settings, path)
	if err != nil {
		return err
	}
	defer closeSource()

	session, err := decode.NewDecoder(*settings)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	out, err := decode.OpenSinks(*settings, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()

	done := make(chan decodeResult, 1)
	go func() {
		defer recovery.HandlePanicFunc(closeSource)
		stats, err := session.Run(ctx, src, out)
		done <- decodeResult{stats: stats, err: err}
	}()

	var res decodeResult
	select {
	case res = <-done:
	case <-ctx.Done():
		select {
		case res = <-done:
		case <-time.After(shutdownTimeout):
			return errors.New("decoder did not stop in time")
		}
	}

	if settings.Debug {
		log.Printf("decode finished: %s", res.stats)
	}
	return res.err
}

// openSource returns the WAV file at path, or the live capture when path is empty.
// For a file the detector runs at the file's own sample rate.
func openSource(ctx context.Context, settings *config.Settings, path string) (audio.Source, func(), error) {
	if path != "" {
		wav, err := audio.OpenWAV(path, settings.BlockSize, time.Now())
		if err != nil {
			return nil, nil, err
		}
		if rate := float64(wav.SampleRate()); rate != settings.SampleRate {
			if settings.Debug {
				log.Printf("%s: using file sample rate %.0f Hz", path, rate)
			}
			settings.SampleRate = rate
		}
		return wav, func() { _ = wav.Close() }, nil
	}

	capture := audio.New(audio.Config{
		DeviceIndex: settings.DeviceIndex,
		SampleRate:  uint32(settings.SampleRate),
		Channels:    uint32(settings.Channels),
		BufferSize:  uint32(settings.BufferSize),
		BlockSize:   settings.BlockSize,
		QueueSize:   settings.QueueSize,
	})
	if err := capture.Init(); err != nil {
		return nil, nil, fmt.Errorf("audio: %w", err)
	}
	if err := capture.Start(ctx); err != nil {
		_ = capture.Close()
		return nil, nil, fmt.Errorf("audio: %w", err)
	}
	return capture, func() { _ = capture.Close() }, nil
}

// Package decode runs the tone detector and Morse decoder over an audio source.
package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ColonelBlimp/cwtone/internal/audio"
	"github.com/ColonelBlimp/cwtone/internal/config"
	"github.com/ColonelBlimp/cwtone/internal/cw"
	"github.com/ColonelBlimp/cwtone/internal/dsp"
	"github.com/ColonelBlimp/cwtone/internal/recovery"
	"github.com/ColonelBlimp/cwtone/internal/sink"
)

// Decoder is one decode session: a tone detector feeding a Morse decoder.
// Run is single-threaded; only the Control may be used from other goroutines.
type Decoder struct {
	detector *dsp.ToneDetector
	morse    *cw.Decoder
	control  *Control
	logger   *log.Logger
	debug    bool

	stats Stats
}

// NewDecoder builds a session from the application settings.
func NewDecoder(s config.Settings) (*Decoder, error) {
	detector, err := dsp.NewToneDetector(s.DetectorConfig())
	if err != nil {
		return nil, fmt.Errorf("tone detector: %w", err)
	}
	morse, err := cw.NewDecoder(s.DecoderConfig())
	if err != nil {
		return nil, fmt.Errorf("morse decoder: %w", err)
	}

	d := &Decoder{
		detector: detector,
		morse:    morse,
		control:  NewControl(),
		logger:   log.New(os.Stderr, "cwtone: ", log.LstdFlags),
		debug:    s.Debug,
	}
	morse.SetAnomalyCallback(d.onAnomaly)
	return d, nil
}

// SetLogger replaces the diagnostic logger
func (d *Decoder) SetLogger(l *log.Logger) {
	d.logger = l
}

// Control returns the session's start/stop control
func (d *Decoder) Control() *Control {
	return d.control
}

func (d *Decoder) onAnomaly(element time.Duration, at time.Time) {
	d.stats.Anomalies++
	if d.debug {
		d.logger.Printf("dropped %v tone ending %s", element, at.Format("15:04:05.000"))
	}
}

// Run reads blocks from src until the control is stopped, ctx is done or the source
// ends, writing each decoded event to out. A Stop issued before Run makes it return
// without reading. On the way out any partial letter is flushed to out. A source error other than io.EOF is returned after the flush;
// cancellation and stopping are not errors.
func (d *Decoder) Run(ctx context.Context, src audio.Source, out sink.Sink) (Stats, error) {
	d.stats = Stats{}
	d.detector.Reset()
	d.morse.Reset()

	if !d.control.Start() && d.debug {
		d.logger.Printf("stop requested before the session started")
	}
	defer d.control.finish()
	stopped := d.control.Done()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer recovery.HandlePanicFunc(cancel)
		select {
		case <-stopped:
			cancel()
		case <-runCtx.Done():
		}
	}()

	var runErr error
	for d.control.IsRunning() && runCtx.Err() == nil {
		block, err := src.Next(runCtx)
		if err != nil {
			if !errors.Is(err, io.EOF) && runCtx.Err() == nil {
				runErr = fmt.Errorf("read audio: %w", err)
			}
			break
		}
		d.process(block, out)
	}

	if last, ok := d.morse.Finalize(); ok {
		d.deliver(last, out)
	}
	if counter, ok := src.(interface{ Dropped() uint64 }); ok {
		d.stats.Dropped = counter.Dropped()
	}
	return d.stats, runErr
}

func (d *Decoder) process(block audio.Block, out sink.Sink) {
	power := d.detector.Process(block.Samples)
	d.stats.Blocks++
	d.stats.Samples += uint64(len(block.Samples))

	if event, ok := d.morse.AddSignal(power, block.Time); ok {
		d.deliver(event, out)
	}
}

// deliver hands one event to the sink. Sink failures are logged and counted so a
// broken consumer does not stop decoding.
func (d *Decoder) deliver(event cw.DecodedOutput, out sink.Sink) {
	switch event.Kind {
	case cw.KindLetter:
		d.stats.Letters++
	case cw.KindUnrecognized:
		d.stats.Unrecognized++
		if d.debug {
			d.logger.Printf("unrecognized code %q", event.Code)
		}
	case cw.KindWordSpace:
		d.stats.WordSpaces++
	}

	if err := out.Write(event); err != nil {
		d.stats.SinkErrors++
		d.logger.Printf("sink: %v", err)
	}
}

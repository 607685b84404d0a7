package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var (
	// ErrNotWAV indicates the input is not a RIFF/WAVE stream
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrMissingChunk indicates the fmt or data chunk is absent
	ErrMissingChunk = errors.New("wav file is missing the fmt or data chunk")
	// ErrUnsupportedFormat indicates anything other than 16-bit integer PCM
	ErrUnsupportedFormat = errors.New("only 16-bit PCM wav is supported")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// fmt chunks are 16, 18 or 40 bytes; anything far past that is not a real header
	maxFmtChunk = 64
)

// WAVSource reads a 16-bit PCM WAV file as a Source. Only the first channel is used.
// Block times advance with the sample position from a start instant, so a file decodes
// the same way however fast it is read.
type WAVSource struct {
	r          io.Reader
	closer     io.Closer
	sampleRate int
	channels   int
	blockSize  int
	remaining  int64 // data bytes not yet read
	position   int64 // frames delivered
	clock      sampleClock
}

// OpenWAV opens path and prepares it for reading blocks of blockSize samples.
// start is the wall time assigned to the first sample.
func OpenWAV(path string, blockSize int, start time.Time) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	src, err := NewWAVSource(f, blockSize, start)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewWAVSource parses the RIFF header from r and leaves r positioned at the sample data.
func NewWAVSource(r io.Reader, blockSize int, start time.Time) (*WAVSource, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		format, channels, bits uint16
		sampleRate             uint32
		foundFmt               bool
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, ErrMissingChunk
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		padding := size % 2

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			if size > maxFmtChunk {
				return nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrUnsupportedFormat, size)
			}
			var data [16]byte
			if _, err := io.ReadFull(r, data[:]); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if _, err := io.CopyN(io.Discard, r, size-16+padding); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			format = binary.LittleEndian.Uint16(data[0:2])
			channels = binary.LittleEndian.Uint16(data[2:4])
			sampleRate = binary.LittleEndian.Uint32(data[4:8])
			bits = binary.LittleEndian.Uint16(data[14:16])
			foundFmt = true

		case "data":
			if !foundFmt {
				return nil, ErrMissingChunk
			}
			if (format != wavFormatPCM && format != wavFormatExtensible) || bits != 16 {
				return nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedFormat, format, bits)
			}
			if channels == 0 || sampleRate == 0 {
				return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, sampleRate)
			}
			return &WAVSource{
				r:          r,
				sampleRate: int(sampleRate),
				channels:   int(channels),
				blockSize:  blockSize,
				remaining:  size,
				clock:      sampleClock{start: start, rate: float64(sampleRate)},
			}, nil

		default:
			if _, err := io.CopyN(io.Discard, r, size+padding); err != nil {
				return nil, ErrMissingChunk
			}
		}
	}
}

// Next returns the next block. The last block may be short; after it Next returns io.EOF.
func (w *WAVSource) Next(ctx context.Context) (Block, error) {
	if err := ctx.Err(); err != nil {
		return Block{}, err
	}

	frameBytes := int64(2 * w.channels)
	want := int64(w.blockSize) * frameBytes
	if want > w.remaining {
		want = w.remaining - w.remaining%frameBytes
	}
	if want == 0 {
		return Block{}, io.EOF
	}

	buf := make([]byte, want)
	n, err := io.ReadFull(w.r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return Block{}, io.EOF
		}
		return Block{}, fmt.Errorf("read wav data: %w", err)
	}
	n -= n % int(frameBytes)
	if n == 0 {
		return Block{}, io.EOF
	}
	if int64(n) < want {
		w.remaining = 0 // truncated file
	} else {
		w.remaining -= int64(n)
	}

	samples := firstChannel(bytesToInt16(buf[:n]), w.channels)
	w.position += int64(len(samples))
	return Block{Samples: samples, Time: w.clock.at(w.position)}, nil
}

// SampleRate returns the file's sample rate in Hz
func (w *WAVSource) SampleRate() int {
	return w.sampleRate
}

// Channels returns the number of interleaved channels in the file
func (w *WAVSource) Channels() int {
	return w.channels
}

// Close closes the underlying file, if OpenWAV opened one.
func (w *WAVSource) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// ReadAll drains the source into one sample slice. Used for offline analysis.
func ReadAll(ctx context.Context, src Source) ([]int16, error) {
	var all []int16
	for {
		b, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, b.Samples...)
	}
}

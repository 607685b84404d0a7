// Package dsp implements the single-tone power estimate that feeds the Morse decoder.
package dsp

import (
	"errors"
	"math"
)

// fullScale maps signed 16-bit samples onto [-1, 1).
const fullScale = 32768.0

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
)

// ToneDetectorConfig holds configuration for the tone detector.
// It is fixed for the lifetime of a ToneDetector; build a new one to change it.
type ToneDetectorConfig struct {
	// TargetFrequency is the tone to measure in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the analysis window in samples (from config: block_size)
	BlockSize int
	// Accumulate disables the per-window register reset (from config: accumulate_power).
	// Power then keeps integrating for the whole session and grows without bound on a
	// steady tone.
	Accumulate bool
}

// ToneDetector estimates the power of one frequency with a recursive Goertzel filter.
//
// The two feedback registers carry over between calls to Process. Unless Accumulate is
// set they are cleared every BlockSize samples, counted across calls, so the analysis
// window is the same whatever buffer sizes the caller hands in.
//
// A ToneDetector is owned by a single goroutine.
type ToneDetector struct {
	config      ToneDetectorConfig
	coefficient float64 // 2 * cos(2π * f / fs)

	s1, s2 float64
	count  int     // samples since the last register reset
	power  float64 // result of the most recent Process call
}

// NewToneDetector creates a tone detector for the given configuration.
func NewToneDetector(cfg ToneDetectorConfig) (*ToneDetector, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2.0 {
		return nil, ErrInvalidFrequency
	}

	omega := 2.0 * math.Pi * cfg.TargetFrequency / cfg.SampleRate

	return &ToneDetector{
		config:      cfg,
		coefficient: 2.0 * math.Cos(omega),
	}, nil
}

// Reset zeroes the feedback registers and forgets the last power value.
// Use it between independent sessions so energy from a stale interval does not leak in.
func (d *ToneDetector) Reset() {
	d.s1 = 0
	d.s2 = 0
	d.count = 0
	d.power = 0
}

// Process runs every sample of block through the filter, in order, and returns the
// power after the last one. When the block ends exactly on a window boundary this is
// the power of the whole window. A partial window is scaled as a full one, so a few
// samples read as a few samples' worth of energy and a short trailing block cannot
// pass for a tone.
//
// An empty block changes nothing and returns the previous power.
func (d *ToneDetector) Process(block []int16) float64 {
	if len(block) == 0 {
		return d.power
	}

	coeff := d.coefficient
	window := d.config.BlockSize
	s1, s2 := d.s1, d.s2

	for _, x := range block {
		s0 := float64(x)/fullScale + coeff*s1 - s2
		s2 = s1
		s1 = s0
		d.count++

		if !d.config.Accumulate && d.count == window {
			d.power = d.normalizedPower(s1, s2)
			s1, s2 = 0, 0
			d.count = 0
		}
	}

	d.s1, d.s2 = s1, s2
	if d.count > 0 {
		d.power = d.normalizedPower(s1, s2)
	}
	return d.power
}

// normalizedPower scales the raw Goertzel power by (2/BlockSize)², so a full-scale
// tone over one window reads about 1.0.
func (d *ToneDetector) normalizedPower(s1, s2 float64) float64 {
	raw := s1*s1 + s2*s2 - d.coefficient*s1*s2
	if raw < 0 {
		raw = 0
	}
	scale := 2.0 / float64(d.config.BlockSize)
	return raw * scale * scale
}

// Power returns the value returned by the most recent Process call.
func (d *ToneDetector) Power() float64 {
	return d.power
}

// Config returns the detector configuration
func (d *ToneDetector) Config() ToneDetectorConfig {
	return d.config
}

// Coefficient returns the pre-computed Goertzel coefficient (for testing)
func (d *ToneDetector) Coefficient() float64 {
	return d.coefficient
}

// BlockSize returns the analysis window length in samples
func (d *ToneDetector) BlockSize() int {
	return d.config.BlockSize
}

package dsp

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

var (
	// ErrInvalidFFTSize indicates the FFT size must be at least 16 samples
	ErrInvalidFFTSize = errors.New("fft size must be at least 16")
	// ErrInvalidSearchRange indicates the search band is empty or outside Nyquist
	ErrInvalidSearchRange = errors.New("search range must satisfy 0 <= min < max <= Nyquist")
	// ErrInsufficientSamples indicates not enough samples for one FFT segment
	ErrInsufficientSamples = errors.New("insufficient samples for fft size")
)

// Peak is a spectral peak found by SpectrumAnalyzer.
type Peak struct {
	// Frequency is the interpolated peak frequency in Hz
	Frequency float64
	// Magnitude is the peak bin magnitude scaled so a full-scale sine reads about 1.0
	Magnitude float64
}

// SpectrumAnalyzer finds the dominant frequency in a recording. It is an offline
// helper for choosing tone_frequency and is not part of the decode path.
type SpectrumAnalyzer struct {
	sampleRate float64
	fftSize    int
	window     []float64
	gain       float64 // coherent gain of the window
}

// NewSpectrumAnalyzer builds an analyzer using a Blackman window of fftSize points.
func NewSpectrumAnalyzer(sampleRate float64, fftSize int) (*SpectrumAnalyzer, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if fftSize < 16 {
		return nil, ErrInvalidFFTSize
	}

	w := window.Blackman(fftSize)
	var sum float64
	for _, v := range w {
		sum += v
	}

	return &SpectrumAnalyzer{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		window:     w,
		gain:       sum,
	}, nil
}

// FFTSize returns the number of samples consumed per segment.
func (sa *SpectrumAnalyzer) FFTSize() int {
	return sa.fftSize
}

// DominantFrequency averages the magnitude spectrum over every whole fftSize segment
// of samples and returns the strongest peak between minFreq and maxFreq.
func (sa *SpectrumAnalyzer) DominantFrequency(samples []int16, minFreq, maxFreq float64) (Peak, error) {
	if minFreq < 0 || maxFreq <= minFreq || maxFreq > sa.sampleRate/2 {
		return Peak{}, ErrInvalidSearchRange
	}
	segments := len(samples) / sa.fftSize
	if segments == 0 {
		return Peak{}, ErrInsufficientSamples
	}

	half := sa.fftSize/2 + 1
	mags := make([]float64, half)
	segment := make([]float64, sa.fftSize)

	for s := 0; s < segments; s++ {
		chunk := samples[s*sa.fftSize : (s+1)*sa.fftSize]
		for i, x := range chunk {
			segment[i] = float64(x) / fullScale * sa.window[i]
		}
		spectrum := fft.FFTReal(segment)
		for i := 0; i < half; i++ {
			mags[i] += cmplx.Abs(spectrum[i])
		}
	}

	binWidth := sa.sampleRate / float64(sa.fftSize)
	start := int(minFreq / binWidth)
	end := int(maxFreq / binWidth)
	if end >= half {
		end = half - 1
	}

	maxIndex := start
	for i := start; i <= end; i++ {
		if mags[i] > mags[maxIndex] {
			maxIndex = i
		}
	}

	// Parabolic interpolation over the peak and its neighbours
	freq := float64(maxIndex) * binWidth
	if maxIndex > 0 && maxIndex < half-1 {
		alpha, beta, gamma := mags[maxIndex-1], mags[maxIndex], mags[maxIndex+1]
		if denom := alpha - 2*beta + gamma; denom != 0 {
			p := 0.5 * (alpha - gamma) / denom
			freq = (float64(maxIndex) + p) * binWidth
		}
	}

	return Peak{
		Frequency: freq,
		Magnitude: 2 * mags[maxIndex] / float64(segments) / sa.gain,
	}, nil
}

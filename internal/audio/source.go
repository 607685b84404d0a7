// Package audio delivers signed 16-bit sample blocks from a sound device or a WAV file.
package audio

import (
	"context"
	"time"
)

// Block is one fixed-size run of mono samples.
// Time is the instant of the last sample in the block, taken from the sample clock.
type Block struct {
	Samples []int16
	Time    time.Time
}

// Source produces sample blocks in order.
// Next blocks until a block is ready, ctx is done or the source is exhausted (io.EOF).
type Source interface {
	Next(ctx context.Context) (Block, error)
}

// sampleClock converts a sample count to wall time from a fixed anchor.
type sampleClock struct {
	start time.Time
	rate  float64
}

func (c sampleClock) at(n int64) time.Time {
	return c.start.Add(time.Duration(float64(n) * float64(time.Second) / c.rate))
}

// Blocker cuts an arbitrary stream of samples into blocks of a fixed size and stamps
// each block from a sample clock, so timestamps do not depend on callback jitter.
type Blocker struct {
	size    int
	clock   sampleClock
	pending []int16
	emitted int64
	started bool
}

// NewBlocker creates a Blocker producing blocks of size samples at sampleRate.
func NewBlocker(size int, sampleRate float64) *Blocker {
	return &Blocker{
		size:    size,
		clock:   sampleClock{rate: sampleRate},
		pending: make([]int16, 0, size),
	}
}

// Anchor fixes the wall time of sample zero. Only the first call has an effect.
func (b *Blocker) Anchor(t time.Time) {
	if b.started {
		return
	}
	b.clock.start = t
	b.started = true
}

// Anchored reports whether the clock has been anchored.
func (b *Blocker) Anchored() bool {
	return b.started
}

// Write appends samples and calls emit for every complete block.
func (b *Blocker) Write(samples []int16, emit func(Block)) {
	for len(samples) > 0 {
		n := b.size - len(b.pending)
		if n > len(samples) {
			n = len(samples)
		}
		b.pending = append(b.pending, samples[:n]...)
		samples = samples[n:]

		if len(b.pending) == b.size {
			emit(b.take())
		}
	}
}

// Flush returns the partial block, if any.
func (b *Blocker) Flush() (Block, bool) {
	if len(b.pending) == 0 {
		return Block{}, false
	}
	return b.take(), true
}

func (b *Blocker) take() Block {
	out := make([]int16, len(b.pending))
	copy(out, b.pending)
	b.pending = b.pending[:0]
	b.emitted += int64(len(out))
	return Block{Samples: out, Time: b.clock.at(b.emitted)}
}

// firstChannel extracts channel 0 from interleaved frames.
func firstChannel(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		out[i] = samples[i*channels]
	}
	return out
}

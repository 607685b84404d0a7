package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DeviceIndex != -1 {
		t.Errorf("DefaultConfig().DeviceIndex = %d, want -1", cfg.DeviceIndex)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("DefaultConfig().SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		t.Errorf("DefaultConfig().Channels = %d, want 1", cfg.Channels)
	}
	if cfg.BlockSize != 240 {
		t.Errorf("DefaultConfig().BlockSize = %d, want 240", cfg.BlockSize)
	}
	if cfg.QueueSize != 64 {
		t.Errorf("DefaultConfig().QueueSize = %d, want 64", cfg.QueueSize)
	}
}

func TestNew(t *testing.T) {
	capture := New(Config{
		DeviceIndex: 2,
		SampleRate:  44100,
		Channels:    2,
		BufferSize:  1024,
		BlockSize:   441,
		QueueSize:   8,
	})

	if capture == nil {
		t.Fatal("New() returned nil")
	}
	if capture.config.DeviceIndex != 2 {
		t.Errorf("capture.config.DeviceIndex = %d, want 2", capture.config.DeviceIndex)
	}
	if cap(capture.blocks) != 8 {
		t.Errorf("queue capacity = %d, want 8", cap(capture.blocks))
	}
}

func TestNew_MinimumQueue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 0

	if got := cap(New(cfg).blocks); got != 1 {
		t.Errorf("queue capacity = %d, want 1", got)
	}
}

func TestCapture_IsRunning_InitialState(t *testing.T) {
	if New(DefaultConfig()).IsRunning() {
		t.Error("IsRunning() = true for new capture, want false")
	}
}

func TestCapture_ListDevices_NotInitialized(t *testing.T) {
	_, err := New(DefaultConfig()).ListDevices()
	if err != ErrNotInitialized {
		t.Errorf("ListDevices() error = %v, want ErrNotInitialized", err)
	}
}

func TestCapture_Start_NotInitialized(t *testing.T) {
	err := New(DefaultConfig()).Start(context.Background())
	if err != ErrNotInitialized {
		t.Errorf("Start() error = %v, want ErrNotInitialized", err)
	}
}

func TestCapture_Start_AlreadyRunning(t *testing.T) {
	capture := New(DefaultConfig())
	capture.running.Store(true)

	if err := capture.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("Start() when running error = %v, want ErrAlreadyRunning", err)
	}
}

func TestCapture_Stop_NotRunning(t *testing.T) {
	if err := New(DefaultConfig()).Stop(); err != ErrNotRunning {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestErrors(t *testing.T) {
	if ErrNotInitialized.Error() != "audio capture not initialized" {
		t.Errorf("ErrNotInitialized message wrong")
	}
	if ErrAlreadyRunning.Error() != "audio capture already running" {
		t.Errorf("ErrAlreadyRunning message wrong")
	}
	if ErrNotRunning.Error() != "audio capture not running" {
		t.Errorf("ErrNotRunning message wrong")
	}
}

func TestBytesToInt16(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  []int16
	}{
		{"empty", []byte{}, []int16{}},
		{"zero", []byte{0x00, 0x00}, []int16{0}},
		{"one", []byte{0x01, 0x00}, []int16{1}},
		{"minus one", []byte{0xFF, 0xFF}, []int16{-1}},
		{"max", []byte{0xFF, 0x7F}, []int16{32767}},
		{"min", []byte{0x00, 0x80}, []int16{-32768}},
		{"odd byte dropped", []byte{0x34, 0x12, 0x99}, []int16{0x1234}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bytesToInt16(tt.bytes)
			if len(got) != len(tt.want) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sample[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// newTestCapture returns a capture with a fixed clock at 8kHz.
func newTestCapture(channels uint32, blockSize, queueSize int, now time.Time) *Capture {
	c := New(Config{
		DeviceIndex: -1,
		SampleRate:  8000,
		Channels:    channels,
		BufferSize:  64,
		BlockSize:   blockSize,
		QueueSize:   queueSize,
	})
	c.now = func() time.Time { return now }
	return c
}

// frames encodes interleaved samples as S16 little-endian bytes.
func frames(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func TestCapture_OnFrames_BlocksAndTimestamps(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := newTestCapture(2, 4, 8, now)

	// Six stereo frames, left channel counts up, right channel is noise
	c.onFrames(frames(1, 100, 2, 100, 3, 100, 4, 100, 5, 100, 6, 100), 6)
	c.onFrames(frames(7, -1, 8, -1), 2)

	anchor := now.Add(-750 * time.Microsecond) // 6 frames at 8kHz
	want := []Block{
		{Samples: []int16{1, 2, 3, 4}, Time: anchor.Add(500 * time.Microsecond)},
		{Samples: []int16{5, 6, 7, 8}, Time: anchor.Add(time.Millisecond)},
	}

	ctx := context.Background()
	for i, w := range want {
		got, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("Next() %d error = %v", i, err)
		}
		if !got.Time.Equal(w.Time) {
			t.Errorf("block %d time = %v, want %v", i, got.Time, w.Time)
		}
		if len(got.Samples) != len(w.Samples) {
			t.Fatalf("block %d has %d samples, want %d", i, len(got.Samples), len(w.Samples))
		}
		for j := range w.Samples {
			if got.Samples[j] != w.Samples[j] {
				t.Errorf("block %d sample %d = %d, want %d", i, j, got.Samples[j], w.Samples[j])
			}
		}
	}
}

func TestCapture_OnFrames_IgnoresEmptyInput(t *testing.T) {
	c := newTestCapture(1, 4, 4, time.Now())
	c.onFrames(nil, 0)

	if c.blocker.Anchored() {
		t.Error("empty callback anchored the sample clock")
	}
}

func TestCapture_SafeSend_DropsOldest(t *testing.T) {
	c := newTestCapture(1, 1, 2, time.Now())

	for i := int16(1); i <= 5; i++ {
		c.safeSend(Block{Samples: []int16{i}})
	}

	if got := c.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}

	ctx := context.Background()
	for _, want := range []int16{4, 5} {
		b, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if b.Samples[0] != want {
			t.Errorf("Next() sample = %d, want %d (newest blocks kept)", b.Samples[0], want)
		}
	}
}

func TestCapture_Next_ContextCancelled(t *testing.T) {
	c := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestCapture_Close_DrainsThenEOF(t *testing.T) {
	c := newTestCapture(1, 2, 4, time.Now())
	c.safeSend(Block{Samples: []int16{1, 2}})

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Sends after close are discarded, not panics
	c.safeSend(Block{Samples: []int16{3, 4}})
	c.onFrames(frames(5, 6), 2)

	ctx := context.Background()
	if b, err := c.Next(ctx); err != nil || b.Samples[0] != 1 {
		t.Fatalf("Next() = %v, %v; want the queued block", b, err)
	}
	if _, err := c.Next(ctx); err != io.EOF {
		t.Errorf("Next() after drain error = %v, want io.EOF", err)
	}
}

func TestCapture_CloseTwice(t *testing.T) {
	c := New(DefaultConfig())
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestCapture_ConcurrentCloseAndSend(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		c := newTestCapture(1, 1, 4, time.Now())
		var wg sync.WaitGroup

		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.safeSend(Block{Samples: []int16{int16(j)}})
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Close()
		}()

		wg.Wait()

		if !c.closed.Load() {
			t.Fatalf("iteration %d: capture should be closed", iteration)
		}
	}
}

func TestCapture_ConcurrentIsRunning(t *testing.T) {
	c := New(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.IsRunning()
			_ = c.Dropped()
		}()
	}
	wg.Wait()
}

func BenchmarkBytesToInt16(b *testing.B) {
	data := make([]byte, 1024*2)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bytesToInt16(data)
	}
}

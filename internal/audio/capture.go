// internal/audio/capture.go
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
)

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // 1 for mono, 2 for stereo; only the first channel is kept
	BufferSize  uint32 // frames per device period
	BlockSize   int    // samples per delivered block
	QueueSize   int    // blocks buffered before the oldest is dropped
}

// DefaultConfig returns sensible defaults for CW decoding
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  1024,
		BlockSize:   240,
		QueueSize:   64,
	}
}

// Capture handles real-time sampling from an audio device and delivers fixed-size
// blocks through a bounded queue. When the consumer falls behind, the oldest queued
// block is discarded so the newest audio always gets through.
type Capture struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	mu      sync.Mutex
	running atomic.Bool

	// blocker is only touched from the device callback
	blocker *Blocker
	now     func() time.Time

	blocks    chan Block
	sendMu    sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// New creates a new audio capture instance
func New(cfg Config) *Capture {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &Capture{
		config:  cfg,
		blocker: NewBlocker(cfg.BlockSize, float64(cfg.SampleRate)),
		now:     time.Now,
		blocks:  make(chan Block, cfg.QueueSize),
	}
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx

	return nil
}

// ListDevices returns available capture devices
func (c *Capture) ListDevices() ([]malgo.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listDevices()
}

func (c *Capture) listDevices() ([]malgo.DeviceInfo, error) {
	if c.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins audio capture. Capture stops when ctx is done.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return ErrAlreadyRunning
	}
	if c.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = c.config.Channels

	if c.config.DeviceIndex >= 0 {
		devices, err := c.listDevices()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				c.config.DeviceIndex, len(devices))
		}
		deviceConfig.Capture.DeviceID = devices[c.config.DeviceIndex].ID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			c.onFrames(input, frameCount)
		},
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.device = device
	c.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// onFrames runs on the audio thread. It must not block.
func (c *Capture) onFrames(input []byte, frameCount uint32) {
	if len(input) == 0 || c.closed.Load() {
		return
	}

	samples := firstChannel(bytesToInt16(input), int(c.config.Channels))
	if !c.blocker.Anchored() {
		// The first frame was sampled one period before the callback fired
		period := time.Duration(float64(frameCount) * float64(time.Second) / float64(c.config.SampleRate))
		c.blocker.Anchor(c.now().Add(-period))
	}
	c.blocker.Write(samples, c.safeSend)
}

// safeSend queues a block, discarding the oldest queued block when the queue is full.
func (c *Capture) safeSend(b Block) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed.Load() {
		return
	}
	for {
		select {
		case c.blocks <- b:
			return
		default:
		}
		select {
		case <-c.blocks:
			c.dropped.Add(1)
		default:
		}
	}
}

// Next returns the next captured block. It returns io.EOF once the capture is closed
// and the queue has drained.
func (c *Capture) Next(ctx context.Context) (Block, error) {
	select {
	case b, ok := <-c.blocks:
		if !ok {
			return Block{}, io.EOF
		}
		return b, nil
	case <-ctx.Done():
		return Block{}, ctx.Err()
	}
}

// Dropped returns the number of blocks discarded because the consumer fell behind.
func (c *Capture) Dropped() uint64 {
	return c.dropped.Load()
}

// Stop stops audio capture
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return ErrNotRunning
	}
	c.stopDevice()
	return nil
}

func (c *Capture) stopDevice() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.running.Store(false)
}

// Close releases all audio resources and ends the block stream.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		c.stopDevice()
	}

	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed.Store(true)
		close(c.blocks)
		c.sendMu.Unlock()
	})

	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}
	return nil
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	return c.running.Load()
}

// bytesToInt16 converts little-endian S16 bytes to samples
func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

package decode

import (
	"sync"
	"sync/atomic"
)

// Control starts and stops a decode session. All methods are safe to call from any
// goroutine, including while Run is blocked waiting for audio.
//
// A Stop that arrives while no session is running is remembered, and the next Run
// returns straight away after its flush.
type Control struct {
	mu       sync.Mutex
	running  atomic.Bool
	stopping bool // the current run was stopped and has not returned yet
	pending  bool // Stop was called with no run in progress
	stopped  chan struct{}
}

// NewControl returns a stopped control
func NewControl() *Control {
	c := &Control{stopped: make(chan struct{})}
	close(c.stopped)
	return c
}

// Start marks the session as running. Starting a running control does nothing.
// It returns false, and clears the request, when a Stop is pending; the control then
// stays stopped.
func (c *Control) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		return true
	}
	if c.pending {
		c.pending = false
		return false
	}
	c.stopped = make(chan struct{})
	c.running.Store(true)
	return true
}

// Stop asks the session to flush and return. Stopping a run that is already
// stopping does nothing; with no run in progress the stop applies to the next one.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running.Load() {
		if !c.stopping {
			c.pending = true
		}
		return
	}
	c.running.Store(false)
	c.stopping = true
	close(c.stopped)
}

// finish ends the current run without leaving a pending stop behind.
func (c *Control) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running.Load() {
		c.running.Store(false)
		close(c.stopped)
	}
	c.stopping = false
}

// Pending reports whether a Stop is waiting for the next run
func (c *Control) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// IsRunning reports whether the session should keep going
func (c *Control) IsRunning() bool {
	return c.running.Load()
}

// Done returns a channel that is closed when the current run is stopped.
func (c *Control) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

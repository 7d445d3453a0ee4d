// Package clock provides an injectable time source and sleeper.
// Production code uses Real; tests use Mock, whose Sleep advances time
// instead of blocking.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by anything that reads the time or blocks
// for a fixed duration.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real uses the system clock.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Sleep blocks for d.
func (Real) Sleep(d time.Duration) { time.Sleep(d) }

// Mock is a test clock with controllable time.
type Mock struct {
	mu      sync.Mutex
	current time.Time
	slept   []time.Duration
}

// NewMock creates a mock clock set to t.
func NewMock(t time.Time) *Mock {
	return &Mock{current: t}
}

// Now returns the mock time.
func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep records d and advances the mock time by it without blocking.
func (c *Mock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
}

// Advance moves the mock time forward by d.
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set sets the mock time.
func (c *Mock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Slept returns every duration passed to Sleep, in call order.
func (c *Mock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

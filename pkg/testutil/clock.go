package testutil

import (
	"sync"
	"time"
)

// MockClock is a settable time source.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMockClock creates a clock frozen at now.
func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

// Now returns the current mock time.
func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

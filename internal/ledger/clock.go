package ledger

import (
	"sync"
	"time"
)

// Clock supplies the ledger timestamp in unix seconds
type Clock interface {
	Now() int64
}

type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a clock that only moves when told to. Used by tests and local tooling.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *ManualClock) Advance(seconds int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
	return c.now
}

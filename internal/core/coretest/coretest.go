// Package coretest provides deterministic clock and id ports for tests.
package coretest

import (
	"fmt"
	"sync"
	"time"
)

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// IDs hands out "<prefix>-1", "<prefix>-2", ...
type IDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewIDs(prefix string) *IDs { return &IDs{prefix: prefix} }

func (g *IDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

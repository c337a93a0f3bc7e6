package authflag

import (
	"sync/atomic"
	"time"
)

// State is one observed value of the flag.
type State struct {
	Disabled bool
	LoadedAt time.Time
}

// Cache is a single-writer, many-reader holder for the flag. The zero value
// is ready to use and reports auth as enabled.
type Cache struct {
	state atomic.Pointer[State]
	now   func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{now: time.Now}
}

// Set overwrites the flag and its load timestamp.
func (c *Cache) Set(disabled bool) {
	if c == nil {
		return
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	c.state.Store(&State{Disabled: disabled, LoadedAt: now()})
}

// Disabled returns the last value passed to Set, or false if Set was never called.
func (c *Cache) Disabled() bool {
	if c == nil {
		return false
	}
	s := c.state.Load()
	return s != nil && s.Disabled
}

// State returns the current state and whether the flag was ever set.
func (c *Cache) State() (State, bool) {
	if c == nil {
		return State{}, false
	}
	s := c.state.Load()
	if s == nil {
		return State{}, false
	}
	return *s, true
}

// Reset clears the cache back to its unset state.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.state.Store(nil)
}

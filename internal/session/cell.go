package session

// Package session provides the owned state cell holding the in-memory
// session projection. The session controller is the cell's only writer;
// every other component reads or subscribes through ports.SessionReader.

import (
	"sync"

	domainauth "github.com/evently/evently-go/internal/domain/auth"
)

// Cell is an observable session value. The zero value is not usable; use
// NewCell, which starts in the pre-bootstrap loading state.
type Cell struct {
	mu   sync.RWMutex
	cur  domainauth.Session
	subs map[int]func(domainauth.Session)
	next int
}

// NewCell creates a cell in the Unknown (loading) state.
func NewCell() *Cell {
	return &Cell{
		cur:  domainauth.Session{Loading: true},
		subs: make(map[int]func(domainauth.Session)),
	}
}

// Current returns the session projection as of now.
func (c *Cell) Current() domainauth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Replace swaps the projection wholesale and notifies subscribers with the
// new value. Notification order across subscribers is unspecified.
func (c *Cell) Replace(s domainauth.Session) {
	c.mu.Lock()
	c.cur = s
	fns := make([]func(domainauth.Session), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may read or
	// resubscribe without deadlocking.
	for _, fn := range fns {
		fn(s)
	}
}

// Subscribe registers fn for future replacements and invokes it once with
// the current value, so a consumer mounted after bootstrap still observes
// the settled state. The returned func cancels the subscription.
func (c *Cell) Subscribe(fn func(domainauth.Session)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	cur := c.cur
	c.mu.Unlock()

	fn(cur)

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Package cache holds the most recent Snapshot received from the broker.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/idwby/cpumon/internal/model"
)

// Cache stores exactly one Snapshot. Writers swap in a whole new value and
// readers load whichever value is current, so a read never mixes fields
// from two snapshots.
type Cache struct {
	cur     atomic.Pointer[model.Snapshot]
	updated atomic.Int64 // unix nanos of last Replace, 0 before the first
	notify  atomic.Pointer[chan struct{}]
}

// New returns a cache holding the default snapshot stamped with now.
func New(now time.Time) *Cache {
	c := &Cache{}
	def := model.DefaultSnapshot(now)
	c.cur.Store(&def)
	ch := make(chan struct{})
	c.notify.Store(&ch)
	return c
}

// Latest returns the current snapshot without blocking.
func (c *Cache) Latest() model.Snapshot {
	return c.cur.Load().Clone()
}

// Replace installs s as the current snapshot and wakes anyone in Changed.
func (c *Cache) Replace(s model.Snapshot) {
	s = s.Clone()
	c.cur.Store(&s)
	c.updated.Store(time.Now().UnixNano())

	next := make(chan struct{})
	prev := c.notify.Swap(&next)
	close(*prev)
}

// Received reports whether any snapshot has replaced the default yet, and
// when the latest one arrived.
func (c *Cache) Received() (time.Time, bool) {
	n := c.updated.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// Changed returns a channel closed on the next Replace.
func (c *Cache) Changed() <-chan struct{} {
	return *c.notify.Load()
}

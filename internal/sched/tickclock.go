// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock paces real-time drivers: it emits on Ch once per interval and
// counts every tick atomically. Emission never blocks; if the consumer falls
// behind the buffered channel, ticks are dropped and counted separately, so
// a slow consumer slips against wall time instead of backing up the ticker.
type TickClock struct {
	Ch      chan struct{}
	count   atomic.Int64
	dropped atomic.Int64
	stop    chan struct{}
	once    sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval. Ch is closed after
// Stop, so consumers can range over it.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
					c.dropped.Add(1)
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks. Safe to call more than
// once.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Dropped returns how many ticks were lost to a lagging consumer.
func (c *TickClock) Dropped() int64 {
	return c.dropped.Load()
}

// Package clock issues the millisecond timestamps stamped into outbound
// command frames. Flight controllers use the timestamp to discard duplicate
// deliveries, so two commands must never carry the same value.
package clock

import (
	"sync"
	"time"
)

// timestampMask keeps timestamps within the 23 bits that survive a float32
// round trip through COMMAND_LONG param7.
const timestampMask = 0x7FFFFF

// Clock generates strictly increasing command timestamps.
type Clock struct {
	mu    sync.Mutex
	last  uint32
	nowFn func() uint32
}

// New returns a Clock backed by the wall clock.
func New() *Clock {
	return &Clock{
		nowFn: func() uint32 {
			return uint32(time.Now().UnixMilli()) & timestampMask
		},
	}
}

// CommandTimestamp returns the current masked millisecond timestamp, bumped
// past the previous one when the wall clock has not advanced between calls.
func (c *Clock) CommandTimestamp() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFn()
	if now <= c.last {
		now = (c.last + 1) & timestampMask
	}
	c.last = now
	return now
}

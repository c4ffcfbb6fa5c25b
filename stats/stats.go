package stats

import (
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Counters are diagnostic totals for the lifetime of the process. They only
// ever grow.
type Counters struct {
	clients  atomic.Int64
	requests atomic.Int64
	errors   atomic.Int64
}

// NextClient counts an accepted client and returns its id, starting at 1.
func (c *Counters) NextClient() int64 {
	return c.clients.Add(1)
}

func (c *Counters) IncrRequests() {
	c.requests.Add(1)
}

func (c *Counters) IncrErrors() {
	c.errors.Add(1)
}

func (c *Counters) Clients() int64 {
	return c.clients.Load()
}

func (c *Counters) Requests() int64 {
	return c.requests.Load()
}

func (c *Counters) Errors() int64 {
	return c.errors.Load()
}

// MarshalLogObject lets the counters be logged with zap.Object.
func (c *Counters) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("clients", c.Clients())
	enc.AddInt64("requests", c.Requests())
	enc.AddInt64("errors", c.Errors())
	return nil
}

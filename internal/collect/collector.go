// Package collect accumulates errors from independent units of work so a batch
// can finish and report every failure at the end.
package collect

import (
	"sync"

	"go.uber.org/multierr"
)

// Collector is an append-only list of errors. It is safe for concurrent use;
// no ordering is guaranteed between concurrent Add calls.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{}
}

// Add records err. Nil errors are ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// Errors returns a copy of the collected errors.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Err combines everything collected into one error, or nil.
func (c *Collector) Err() error {
	return multierr.Combine(c.Errors()...)
}

// Package closer shuts down a group of resources in reverse start order.
package closer

import (
	"io"
	"slices"
	"sync"

	"go.uber.org/multierr"
)

// CloserGroup closes every registered resource even when some of them fail
type CloserGroup struct {
	mu      sync.Mutex
	closers []io.Closer
}

func NewCloserGroup(closers ...io.Closer) *CloserGroup {
	return &CloserGroup{
		closers: closers,
	}
}

// Add registers c to be closed before everything added earlier
func (c *CloserGroup) Add(closers ...io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closers = append(c.closers, closers...)
}

// Close closes the group once, newest first, and combines all errors
func (c *CloserGroup) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var err error
	for _, closer := range slices.Backward(closers) {
		err = multierr.Append(err, closer.Close())
	}
	return err
}

// Func adapts a plain function to io.Closer
type Func func() error

func (f Func) Close() error { return f() }

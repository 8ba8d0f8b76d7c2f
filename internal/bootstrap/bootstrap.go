// Package bootstrap assembles the runtime components shared by the API server
// and the worker from a loaded configuration.
//
// Every constructor registers its teardown on a Cleanup so the commands can
// release resources in reverse order of acquisition.
package bootstrap

import (
	"sync"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

// Cleanup is a LIFO stack of teardown functions.
type Cleanup struct {
	mu    sync.Mutex
	names []string
	fns   []func() error
}

// Add registers fn under name.  Nil functions are ignored.
func (c *Cleanup) Add(name string, fn func() error) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	c.fns = append(c.fns, fn)
}

// Run calls every registered function in reverse order and logs failures.
// It returns the number of failures.  Run empties the stack.
func (c *Cleanup) Run(logger logging.Logger) int {
	c.mu.Lock()
	names, fns := c.names, c.fns
	c.names, c.fns = nil, nil
	c.mu.Unlock()

	failed := 0
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			failed++
			logger.Warn("Cleanup failed", logging.String("component", names[i]), logging.Err(err))
		}
	}
	return failed
}

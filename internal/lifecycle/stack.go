// Package lifecycle releases acquired resources in reverse acquisition order.
package lifecycle

import (
	"errors"
	"fmt"
	log "log/slog"
	"sync"
)

type closer struct {
	name string
	fn   func() error
}

// Stack collects release functions as resources are acquired. Close runs them
// last-in first-out exactly once, whatever path the program leaves by.
type Stack struct {
	mu      sync.Mutex
	closers []closer
	closed  bool
}

func (s *Stack) Push(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closers = append(s.closers, closer{name: name, fn: fn})
}

// Close releases everything pushed so far. Every closer runs even if an
// earlier one fails; failures are joined. Later calls return nil.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.fn(); err != nil {
			log.Warn("Release failed", "resource", c.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		log.Debug("Released", "resource", c.name)
	}
	s.closers = nil

	return errors.Join(errs...)
}

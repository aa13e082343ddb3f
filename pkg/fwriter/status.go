package fwriter

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// statusIndicator shows the filename of a dynamic node a short while after a
// message arrives. At most one timer is pending.
type statusIndicator struct {
	clock    clockwork.Clock
	delay    time.Duration
	onStatus func(string)

	mu      sync.Mutex
	timer   clockwork.Timer
	current string
	stopped bool
}

func newStatusIndicator(clock clockwork.Clock, delay time.Duration, onStatus func(string)) *statusIndicator {
	return &statusIndicator{clock: clock, delay: delay, onStatus: onStatus}
}

func (s *statusIndicator) schedule(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil || s.stopped {
		return
	}
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.set(text)
	})
}

func (s *statusIndicator) set(text string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.current = text
	cb := s.onStatus
	s.mu.Unlock()

	if cb != nil {
		cb(text)
	}
}

// clear is terminal: no status is shown afterwards.
func (s *statusIndicator) clear() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = ""
	cb := s.onStatus
	s.mu.Unlock()

	if cb != nil {
		cb("")
	}
}

func (s *statusIndicator) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Package connectivity reports whether the upload endpoint is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"sync"
)

// Source is a connectivity signal
type Source interface {
	Online() bool
	// Subscribe returns a channel receiving the new state on every transition
	// and a function that cancels the subscription.
	Subscribe() (<-chan bool, func())
}

// Signal is a manually driven Source. Transitions are delivered without
// blocking; a slow subscriber only ever sees the latest state.
type Signal struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
}

// NewSignal creates a signal in the given initial state
func NewSignal(online bool) *Signal {
	return &Signal{online: online, subs: make(map[int]chan bool)}
}

// Online reports the current state
func (s *Signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set changes the state, notifying subscribers only on a transition.
// It reports whether a transition happened.
func (s *Signal) Set(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online == online {
		return false
	}
	s.online = online
	for _, ch := range s.subs {
		// replace any undelivered state with the newest one
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	return true
}

// Subscribe implements Source
func (s *Signal) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan bool, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

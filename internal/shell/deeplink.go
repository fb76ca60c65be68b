package shell

import "sync"

// DeepLinkStore hands at most one pending embedded-content path from
// the OS route resolver to the controller that should consume it. Each
// new link overwrites the previous unconsumed one; there is no queue.
type DeepLinkStore struct {
	mu      sync.Mutex
	pending string
}

func NewDeepLinkStore() *DeepLinkStore {
	return &DeepLinkStore{}
}

// SetPending records a path for the next consumer. Last write wins.
func (s *DeepLinkStore) SetPending(path string) {
	s.mu.Lock()
	s.pending = path
	s.mu.Unlock()
}

// Consume atomically reads and clears the pending path.
func (s *DeepLinkStore) Consume() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == "" {
		return "", false
	}
	path := s.pending
	s.pending = ""
	return path, true
}

// ConsumeMatching clears and returns the pending path only if match
// accepts it, so a sibling view becoming ready first does not swallow a
// link destined for another tab.
func (s *DeepLinkStore) ConsumeMatching(match func(path string) bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == "" || !match(s.pending) {
		return "", false
	}
	path := s.pending
	s.pending = ""
	return path, true
}

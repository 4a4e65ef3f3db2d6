package whatsapp

import (
	"sync"
	"time"
)

const defaultSeenTTL = 24 * time.Hour

// SeenMessages remembers processed message ids so webhook redeliveries are answered once.
type SeenMessages struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewSeenMessages creates a tracker that forgets ids after ttl.
func NewSeenMessages(ttl time.Duration) *SeenMessages {
	if ttl <= 0 {
		ttl = defaultSeenTTL
	}
	return &SeenMessages{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// MarkFirst records id and reports whether it was new.
func (s *SeenMessages) MarkFirst(id string) bool {
	if id == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, key)
		}
	}

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = now
	return true
}

// Forget drops id so a failed message can be retried on redelivery.
func (s *SeenMessages) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
}

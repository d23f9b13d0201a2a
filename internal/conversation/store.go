package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type StoreOption func(*Store)

// WithIdleTTL drops contexts that have not been used for ttl. Expired
// contexts are swept during Get, so no background goroutine is started.
func WithIdleTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = ttl }
}

// WithMaxConversations caps live contexts. Creating one past the cap evicts
// the least recently used context.
func WithMaxConversations(n int) StoreOption {
	return func(s *Store) { s.maxConversations = n }
}

type entry struct {
	ctx      *Context
	lastUsed time.Time
}

// Store hands out one Context per conversation id.
type Store struct {
	mu               sync.Mutex
	limit            int
	idleTTL          time.Duration
	maxConversations int
	contexts         map[string]*entry
	lastSweep        time.Time
	newID            func() string
	now              func() time.Time
}

func NewStore(limit int, opts ...StoreOption) *Store {
	s := &Store{
		limit:    limit,
		contexts: make(map[string]*entry),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the context for id, creating it on first use. An empty id
// allocates a fresh conversation and returns its generated id.
func (s *Store) Get(id string) (string, *Context) {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if id == "" {
		id = s.newID()
	}
	e, ok := s.contexts[id]
	if !ok {
		if s.maxConversations > 0 && len(s.contexts) >= s.maxConversations {
			s.evictOldestLocked()
		}
		e = &entry{ctx: NewContext(s.limit)}
		s.contexts[id] = e
	}
	e.lastUsed = now
	return id, e.ctx
}

// Delete drops a conversation and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contexts[id]; !ok {
		return false
	}
	delete(s.contexts, id)
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

// sweepLocked runs at most once per half TTL so Get stays cheap on busy stores.
func (s *Store) sweepLocked(now time.Time) {
	if s.idleTTL <= 0 || now.Sub(s.lastSweep) < s.idleTTL/2 {
		return
	}
	s.lastSweep = now
	for id, e := range s.contexts {
		if now.Sub(e.lastUsed) >= s.idleTTL {
			delete(s.contexts, id)
		}
	}
}

func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range s.contexts {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID != "" {
		delete(s.contexts, oldestID)
	}
}

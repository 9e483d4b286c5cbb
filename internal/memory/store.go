package memory

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side handle of one conversation.
type Session struct {
	ID        string    `json:"id"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps sessions and their conversation context.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	LoadContext(ctx context.Context, sessionID string) (*Context, error)
	AppendContext(ctx context.Context, sessionID, entry string) error
	DeleteSession(ctx context.Context, id string) error
}

const memorySweepInterval = 10 * time.Minute

// MemoryStore is an in-process Store. Contents are lost on restart.
// Sessions idle for longer than the TTL are treated as gone and are
// removed by a background sweep.
type MemoryStore struct {
	sessions map[string]*memorySession
	capacity int
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
}

type memorySession struct {
	session  Session
	context  *Context
	lastSeen time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithSessionTTL sets how long an idle session is kept (default DefaultSessionTTL)
func WithSessionTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithStoreClock overrides the time source, for tests
func WithStoreClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates an in-process store keeping capacity entries per
// session. Call Close to stop the background sweep.
func NewMemoryStore(capacity int, opts ...MemoryOption) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &MemoryStore{
		sessions: make(map[string]*memorySession),
		capacity: capacity,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	interval := memorySweepInterval
	if m.ttl < interval {
		interval = m.ttl
	}
	go m.sweepLoop(interval)
	return m
}

func (m *MemoryStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = &memorySession{
		session:  s,
		context:  NewContext(m.capacity),
		lastSeen: m.now(),
	}
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms, ok := m.live(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return ms.session, nil
}

// LoadContext returns a copy of the session's context.
func (m *MemoryStore) LoadContext(_ context.Context, sessionID string) (*Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms, ok := m.live(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return NewContext(m.capacity, ms.context.entries...), nil
}

// AppendContext adds entry and marks the session active.
func (m *MemoryStore) AppendContext(_ context.Context, sessionID, entry string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.live(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	ms.context.Append(entry)
	ms.lastSeen = m.now()
	return nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until swept
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were dropped
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, ms := range m.sessions {
		if m.expired(ms) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

// live must be called with m.mu held
func (m *MemoryStore) live(id string) (*memorySession, bool) {
	ms, ok := m.sessions[id]
	if !ok || m.expired(ms) {
		return nil, false
	}
	return ms, true
}

func (m *MemoryStore) expired(ms *memorySession) bool {
	return m.now().Sub(ms.lastSeen) > m.ttl
}

func (m *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("Session store: swept %d idle sessions", n)
			}
		}
	}
}

// Package session keeps the conversational state of each browser session.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-chat-assistant/internal/chat"
)

const (
	DefaultMaxSessions    = 1000
	DefaultTTL            = 30 * time.Minute
	DefaultTurnsPerMinute = 20
)

type entry struct {
	session *chat.Session
	limiter *rate.Limiter
}

// Manager is a bounded registry of sessions. Idle sessions expire after the
// TTL and the least recently used one is evicted when the registry is full.
type Manager struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *entry]
	rate    rate.Limit
	burst   int
}

// Option customizes a Manager.
type Option func(*config)

type config struct {
	onEvict func(id string)
}

// WithEvictHook runs fn with the id of every session that expires or is evicted.
func WithEvictHook(fn func(id string)) Option {
	return func(c *config) { c.onEvict = fn }
}

// NewManager creates a session registry. Non-positive arguments fall back to
// the package defaults.
func NewManager(size int, ttl time.Duration, turnsPerMinute int, opts ...Option) *Manager {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if turnsPerMinute <= 0 {
		turnsPerMinute = DefaultTurnsPerMinute
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var onEvict expirable.EvictCallback[string, *entry]
	if cfg.onEvict != nil {
		onEvict = func(id string, _ *entry) { cfg.onEvict(id) }
	}

	return &Manager{
		entries: expirable.NewLRU[string, *entry](size, onEvict, ttl),
		rate:    rate.Limit(float64(turnsPerMinute) / 60.0),
		burst:   max(1, turnsPerMinute/4),
	}
}

// Start creates a fresh session with a new random id.
func (m *Manager) Start() *chat.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.add(uuid.NewString()).session
}

// Get returns the session for id and refreshes its expiry.
func (m *Manager) Get(id string) (*chat.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(id)
	if !ok {
		return nil, false
	}
	m.entries.Add(id, e)
	return e.session, true
}

// Resume returns the session for id, or starts a new one when id is unknown
// or expired. The boolean reports whether a new session was created.
func (m *Manager) Resume(id string) (*chat.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if e, ok := m.entries.Get(id); ok {
			m.entries.Add(id, e)
			return e.session, false
		}
	}
	return m.add(uuid.NewString()).session, true
}

// Allow reports whether the session may submit another turn now.
func (m *Manager) Allow(id string) bool {
	e, ok := m.entries.Peek(id)
	if !ok {
		return false
	}
	return e.limiter.Allow()
}

// Remove forgets a session.
func (m *Manager) Remove(id string) {
	m.entries.Remove(id)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	return m.entries.Len()
}

func (m *Manager) add(id string) *entry {
	e := &entry{
		session: chat.NewSession(id),
		limiter: rate.NewLimiter(m.rate, m.burst),
	}
	m.entries.Add(id, e)
	return e
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"swipestay/internal/adapters/observability"
	"swipestay/internal/domain"
)

// Manager keeps sessions in memory by id and drops the ones left idle.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	search   domain.HotelSearcher
	repo     domain.ShortlistRepository
	opts     Options
}

type entry struct {
	s    *Session
	seen time.Time
}

func NewManager(search domain.HotelSearcher, repo domain.ShortlistRepository, opts Options) *Manager {
	return &Manager{
		sessions: map[string]*entry{},
		search:   search,
		repo:     repo,
		opts:     opts.withDefaults(),
	}
}

// Create starts a session. An empty owner makes the session its own owner;
// a known owner gets their saved shortlist back.
func (m *Manager) Create(ctx context.Context, owner string) (*Session, error) {
	id := uuid.NewString()
	if owner == "" {
		owner = id
	} else if _, err := uuid.Parse(owner); err != nil {
		return nil, domain.NewValidationError("owner", "must be a UUID")
	}

	s := New(id, owner, m.search, m.repo, m.opts)
	if err := s.Shortlist.Restore(ctx); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("shortlist restore failed; starting empty")
	}

	m.mu.Lock()
	m.sessions[id] = &entry{s: s, seen: m.opts.Clock.Now()}
	n := len(m.sessions)
	m.mu.Unlock()
	observability.ActiveSessions.Set(float64(n))
	return s, nil
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "session %s", id)
	}
	e.seen = m.opts.Clock.Now()
	return e.s, nil
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	observability.ActiveSessions.Set(float64(n))
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every session untouched for at least the idle TTL and
// reports how many went.
func (m *Manager) Sweep() int {
	now := m.opts.Clock.Now()
	m.mu.Lock()
	evicted := 0
	for id, e := range m.sessions {
		if now.Sub(e.seen) >= m.opts.IdleTTL {
			delete(m.sessions, id)
			evicted++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	observability.ActiveSessions.Set(float64(n))
	if evicted > 0 {
		log.Info().Int("evicted", evicted).Int("active", n).Msg("idle sessions dropped")
	}
	return evicted
}

// Run sweeps every half TTL until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	every := m.opts.IdleTTL / 2
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.opts.Clock.After(every):
			m.Sweep()
		}
	}
}

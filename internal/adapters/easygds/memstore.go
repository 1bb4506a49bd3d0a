package easygds

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"

	"swipestay/internal/adapters/observability"
	"swipestay/internal/domain"
)

// MemoryTokenStore is a process-local TokenStore for single-replica deployments and tests.
type MemoryTokenStore struct {
	mu   sync.Mutex
	clk  clock.Clock
	cred domain.Credential
}

func NewMemoryTokenStore(clk clock.Clock) *MemoryTokenStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryTokenStore{clk: clk}
}

func (m *MemoryTokenStore) Get(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cred.ValidAt(m.clk.Now()) {
		m.cred = domain.Credential{}
		observability.ObserveCache("memory", "miss")
		return "", false, nil
	}
	observability.ObserveCache("memory", "hit")
	return m.cred.Token, true, nil
}

func (m *MemoryTokenStore) Set(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = domain.Credential{Token: token, ExpiresAt: m.clk.Now().Add(ttl)}
	observability.ObserveCache("memory", "set")
	return nil
}

func (m *MemoryTokenStore) Del(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = domain.Credential{}
	observability.ObserveCache("memory", "del")
	return nil
}

// Credential returns a copy of the held credential, zero when none.
func (m *MemoryTokenStore) Credential() domain.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

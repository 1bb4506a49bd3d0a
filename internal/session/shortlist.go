package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"swipestay/internal/domain"
)

// MaxShortlist caps how many hotels can be compared at once.
const MaxShortlist = 10

const persistTimeout = 5 * time.Second

// Shortlist is an ordered, duplicate-free set of at most MaxShortlist
// hotels. Every change is written through to the repository when one is set.
type Shortlist struct {
	notifier
	mu     sync.RWMutex
	hotels []domain.Hotel
	owner  string
	repo   domain.ShortlistRepository
	saveMu sync.Mutex
}

func NewShortlist(owner string, repo domain.ShortlistRepository) *Shortlist {
	return &Shortlist{owner: owner, repo: repo}
}

// Restore loads the owner's saved shortlist, dropping duplicates and
// anything over capacity.
func (s *Shortlist) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	saved, err := s.repo.Load(ctx, s.owner)
	if err != nil {
		return errors.Wrapf(err, "restore shortlist for %s", s.owner)
	}
	s.mu.Lock()
	s.hotels = s.hotels[:0]
	seen := map[string]struct{}{}
	for _, h := range saved {
		if _, dup := seen[h.ID]; dup || len(s.hotels) >= MaxShortlist {
			continue
		}
		seen[h.ID] = struct{}{}
		s.hotels = append(s.hotels, h)
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventShortlist})
	return nil
}

// TryAdd appends h, reporting why it could not.
func (s *Shortlist) TryAdd(h domain.Hotel) error {
	s.mu.Lock()
	if len(s.hotels) >= MaxShortlist {
		s.mu.Unlock()
		return domain.ErrShortlistFull
	}
	for _, x := range s.hotels {
		if x.ID == h.ID {
			s.mu.Unlock()
			return domain.ErrAlreadyShortlisted
		}
	}
	s.hotels = append(s.hotels, h)
	s.mu.Unlock()
	s.changed(h.ID)
	return nil
}

// Add appends h unless the list is full or already holds its id.
func (s *Shortlist) Add(h domain.Hotel) bool { return s.TryAdd(h) == nil }

func (s *Shortlist) Remove(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, h := range s.hotels {
		if h.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.hotels = append(s.hotels[:idx:idx], s.hotels[idx+1:]...)
	s.mu.Unlock()
	s.changed(id)
	return true
}

func (s *Shortlist) Clear() {
	s.mu.Lock()
	s.hotels = nil
	s.mu.Unlock()
	s.changed("")
}

func (s *Shortlist) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.hotels {
		if h.ID == id {
			return true
		}
	}
	return false
}

func (s *Shortlist) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hotels)
}

func (s *Shortlist) IsFull() bool { return s.Len() >= MaxShortlist }

func (s *Shortlist) Hotels() []domain.Hotel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Hotel{}, s.hotels...)
}

func (s *Shortlist) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.hotels))
	for _, h := range s.hotels {
		out = append(out, h.ID)
	}
	return out
}

func (s *Shortlist) changed(id string) {
	s.persist()
	s.emit(Event{Kind: EventShortlist, HotelID: id})
}

// persist snapshots under saveMu so the last write always carries the latest state.
func (s *Shortlist) persist() {
	if s.repo == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, s.owner, s.Hotels()); err != nil {
		log.Warn().Err(err).Str("owner", s.owner).Msg("shortlist persist failed")
	}
}

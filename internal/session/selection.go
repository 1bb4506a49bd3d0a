package session

import (
	"sort"
	"sync"

	"swipestay/internal/domain"
)

// Selections keeps at most one chosen room/rate per hotel.
type Selections struct {
	notifier
	mu sync.RWMutex
	m  map[string]domain.RoomSelection
}

func NewSelections() *Selections {
	return &Selections{m: map[string]domain.RoomSelection{}}
}

// Select stores sel, replacing any earlier choice for the same hotel.
func (s *Selections) Select(sel domain.RoomSelection) {
	s.mu.Lock()
	s.m[sel.HotelID] = sel
	s.mu.Unlock()
	s.emit(Event{Kind: EventSelection, HotelID: sel.HotelID})
}

func (s *Selections) Clear(hotelID string) bool {
	s.mu.Lock()
	_, ok := s.m[hotelID]
	delete(s.m, hotelID)
	s.mu.Unlock()
	if ok {
		s.emit(Event{Kind: EventSelection, HotelID: hotelID})
	}
	return ok
}

func (s *Selections) Get(hotelID string) (domain.RoomSelection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.m[hotelID]
	return sel, ok
}

func (s *Selections) HasAny() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m) > 0
}

// All lists selections ordered by hotel id.
func (s *Selections) All() []domain.RoomSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomSelection, 0, len(s.m))
	for _, sel := range s.m {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HotelID < out[j].HotelID })
	return out
}

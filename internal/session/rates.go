package session

import (
	"sort"
	"sync"

	"swipestay/internal/domain"
)

// RateCache holds fetched rooms per hotel. An absent entry means "never
// fetched"; an empty list means "fetched, nothing usable".
type RateCache struct {
	notifier
	mu      sync.RWMutex
	rooms   map[string][]domain.Room
	loading map[string]struct{}
}

func NewRateCache() *RateCache {
	return &RateCache{rooms: map[string][]domain.Room{}, loading: map[string]struct{}{}}
}

func (c *RateCache) Get(hotelID string) ([]domain.Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms, ok := c.rooms[hotelID]
	if !ok {
		return nil, false
	}
	return append([]domain.Room{}, rooms...), true
}

func (c *RateCache) IsLoading(hotelID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.loading[hotelID]
	return ok
}

// Begin marks a fetch in flight. It reports false when one already is or
// when the hotel is cached, so each hotel is fetched at most once at a time.
func (c *RateCache) Begin(hotelID string) bool {
	c.mu.Lock()
	if _, busy := c.loading[hotelID]; busy {
		c.mu.Unlock()
		return false
	}
	if _, done := c.rooms[hotelID]; done {
		c.mu.Unlock()
		return false
	}
	c.loading[hotelID] = struct{}{}
	c.mu.Unlock()
	c.emit(Event{Kind: EventRates, HotelID: hotelID})
	return true
}

// Set stores rooms and clears the in-flight flag.
func (c *RateCache) Set(hotelID string, rooms []domain.Room) {
	if rooms == nil {
		rooms = []domain.Room{}
	}
	c.mu.Lock()
	c.rooms[hotelID] = append([]domain.Room{}, rooms...)
	delete(c.loading, hotelID)
	c.mu.Unlock()
	c.emit(Event{Kind: EventRates, HotelID: hotelID})
}

// Fail records an explicit empty result.
func (c *RateCache) Fail(hotelID string) { c.Set(hotelID, nil) }

// Forget drops a cached entry so the next Begin can refetch it.
func (c *RateCache) Forget(hotelID string) {
	c.mu.Lock()
	delete(c.rooms, hotelID)
	c.mu.Unlock()
	c.emit(Event{Kind: EventRates, HotelID: hotelID})
}

// Snapshot copies the cache; in-flight ids are returned sorted.
func (c *RateCache) Snapshot() (map[string][]domain.Room, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make(map[string][]domain.Room, len(c.rooms))
	for id, r := range c.rooms {
		rooms[id] = append([]domain.Room{}, r...)
	}
	loading := make([]string, 0, len(c.loading))
	for id := range c.loading {
		loading = append(loading, id)
	}
	sort.Strings(loading)
	return rooms, loading
}

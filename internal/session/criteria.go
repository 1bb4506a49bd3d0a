package session

import (
	"strings"
	"sync"

	"swipestay/internal/app"
	"swipestay/internal/domain"
)

const (
	defaultCurrency = "USD"
	defaultAdults   = 2
)

// CriteriaState is a copy of everything the traveller asked for.
type CriteriaState struct {
	Destination *domain.Place          `json:"destination,omitempty"`
	CheckIn     string                 `json:"check_in"`
	CheckOut    string                 `json:"check_out"`
	Rooms       []domain.RoomOccupancy `json:"rooms"`
	Currency    string                 `json:"currency"`
	Preferences []string               `json:"preferences"`
	Notes       string                 `json:"notes"`
	Filters     domain.Filters         `json:"filters"`
}

func defaultRooms() []domain.RoomOccupancy {
	return []domain.RoomOccupancy{{Adults: defaultAdults, Children: []int{}}}
}

func (c CriteriaState) clone() CriteriaState {
	out := c
	if c.Destination != nil {
		d := *c.Destination
		out.Destination = &d
	}
	out.Rooms = make([]domain.RoomOccupancy, len(c.Rooms))
	for i, r := range c.Rooms {
		out.Rooms[i] = domain.RoomOccupancy{Adults: r.Adults, Children: append([]int{}, r.Children...)}
	}
	out.Preferences = append([]string{}, c.Preferences...)
	return out
}

// Nights derives the stay length from the dates.
func (c CriteriaState) Nights() int { return app.Nights(c.CheckIn, c.CheckOut) }

func (c CriteriaState) Guests() int {
	n := 0
	for _, r := range c.Rooms {
		n += r.Adults + len(r.Children)
	}
	return n
}

// Criteria holds the search form of one session.
type Criteria struct {
	notifier
	mu sync.RWMutex
	st CriteriaState
}

func NewCriteria() *Criteria {
	c := &Criteria{}
	c.st = CriteriaState{Rooms: defaultRooms(), Currency: defaultCurrency, Preferences: []string{}}
	return c
}

func (c *Criteria) Snapshot() CriteriaState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st.clone()
}

// Replace swaps in a whole new form. Filters are checked; dates and
// destination are only checked when a search runs.
func (c *Criteria) Replace(st CriteriaState) error {
	if err := app.ValidFilters(st.Filters); err != nil {
		return err
	}
	st = st.clone()
	st.Currency = strings.ToUpper(strings.TrimSpace(st.Currency))
	if st.Currency == "" {
		st.Currency = defaultCurrency
	}
	if len(st.Rooms) == 0 {
		st.Rooms = defaultRooms()
	}
	c.mu.Lock()
	c.st = st
	c.mu.Unlock()
	c.emit(Event{Kind: EventCriteria})
	return nil
}

func (c *Criteria) SetFilters(f domain.Filters) error {
	if err := app.ValidFilters(f); err != nil {
		return err
	}
	c.mu.Lock()
	c.st.Filters = f
	c.mu.Unlock()
	c.emit(Event{Kind: EventCriteria})
	return nil
}

// Reset restores the defaults. The currency is a display preference and survives.
func (c *Criteria) Reset() {
	c.mu.Lock()
	cur := c.st.Currency
	if cur == "" {
		cur = defaultCurrency
	}
	c.st = CriteriaState{Rooms: defaultRooms(), Currency: cur, Preferences: []string{}}
	c.mu.Unlock()
	c.emit(Event{Kind: EventCriteria})
}

// Query builds the availability query for the given page, validating first.
func (c *Criteria) Query(page int) (domain.HotelQuery, error) {
	st := c.Snapshot()
	q := domain.HotelQuery{
		CheckIn:  st.CheckIn,
		CheckOut: st.CheckOut,
		Rooms:    st.Rooms,
		Currency: st.Currency,
		Page:     page,
	}
	if st.Destination != nil {
		q.PlaceID = st.Destination.ID
	}
	if err := app.ValidateQuery(q); err != nil {
		return domain.HotelQuery{}, err
	}
	return q, nil
}

func (c *Criteria) Validate() error {
	_, err := c.Query(1)
	return err
}

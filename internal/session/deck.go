package session

import (
	"sync"

	"swipestay/internal/domain"
)

// PrefetchWindow is how close to the end of the visible list the cursor
// must be before another page is wanted.
const PrefetchWindow = 5

// Deck is the swipeable result list. Visible hotels, the current card and
// the prefetch signal are derived on every read.
type Deck struct {
	notifier
	mu        sync.RWMutex
	hotels    []domain.Hotel
	origin    map[string]origin
	cursor    int
	dismissed map[string]struct{}
	loading   bool
	err       string
	hasMore   bool
	searchID  string
	nights    int
	page      int
	gen       uint64 // bumped by every new search; stale claims are dropped
}

type origin struct {
	searchID string
	nights   int
}

// Claim is the right to deliver one fetch into the deck. It goes stale as
// soon as another search starts or the deck is reset.
type Claim struct {
	Page int
	gen  uint64
}

// DeckView is a consistent copy of the deck for rendering.
type DeckView struct {
	SearchID       string         `json:"search_id"`
	Hotels         []domain.Hotel `json:"hotels"`
	Cursor         int            `json:"cursor"`
	Current        *domain.Hotel  `json:"current,omitempty"`
	Fetched        int            `json:"fetched"`
	Dismissed      int            `json:"dismissed"`
	Page           int            `json:"page"`
	Loading        bool           `json:"loading"`
	HasMore        bool           `json:"has_more"`
	ShouldPrefetch bool           `json:"should_prefetch"`
	Error          string         `json:"error,omitempty"`
}

func NewDeck() *Deck {
	d := &Deck{}
	d.resetLocked()
	return d
}

func (d *Deck) resetLocked() {
	d.hotels = nil
	d.origin = map[string]origin{}
	d.cursor = 0
	d.dismissed = map[string]struct{}{}
	d.loading = false
	d.err = ""
	d.hasMore = true
	d.searchID = ""
	d.nights = 0
	d.page = 0
	d.gen++
}

func (d *Deck) visibleLocked() []domain.Hotel {
	out := make([]domain.Hotel, 0, len(d.hotels))
	for _, h := range d.hotels {
		if _, gone := d.dismissed[h.ID]; !gone {
			out = append(out, h)
		}
	}
	return out
}

func (d *Deck) shouldPrefetchLocked() bool {
	return d.cursor >= len(d.visibleLocked())-PrefetchWindow && d.hasMore && !d.loading
}

func (d *Deck) Visible() []domain.Hotel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.visibleLocked()
}

// Current is the hotel under the cursor, if any.
func (d *Deck) Current() (domain.Hotel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v := d.visibleLocked()
	if d.cursor < 0 || d.cursor >= len(v) {
		return domain.Hotel{}, false
	}
	return v[d.cursor], true
}

func (d *Deck) Cursor() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursor
}

func (d *Deck) ShouldPrefetch() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.shouldPrefetchLocked()
}

// Find looks a fetched hotel up by id, dismissed or not.
func (d *Deck) Find(id string) (domain.Hotel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.hotels {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Hotel{}, false
}

// SearchIDFor returns the search a hotel was fetched by, falling back to
// the deck's current search.
func (d *Deck) SearchIDFor(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if o, ok := d.origin[id]; ok && o.searchID != "" {
		return o.searchID
	}
	return d.searchID
}

// NightsFor returns the stay length of the search a hotel came from, or 0
// when the deck does not know it.
func (d *Deck) NightsFor(id string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.origin[id].nights
}

func (d *Deck) Next() { d.move(1) }
func (d *Deck) Prev() { d.move(-1) }

func (d *Deck) move(delta int) {
	d.mu.Lock()
	n := len(d.visibleLocked())
	c := d.cursor + delta
	if c > n-1 {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	d.cursor = c
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
}

// Dismiss hides a fetched hotel for the rest of the search. Unknown ids
// and repeats are no-ops and report false.
func (d *Deck) Dismiss(id string) bool {
	d.mu.Lock()
	if _, gone := d.dismissed[id]; gone {
		d.mu.Unlock()
		return false
	}
	known := false
	for _, h := range d.hotels {
		if h.ID == id {
			known = true
			break
		}
	}
	if !known {
		d.mu.Unlock()
		return false
	}
	d.dismissed[id] = struct{}{}
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck, HotelID: id})
	return true
}

func (d *Deck) IsDismissed(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, gone := d.dismissed[id]
	return gone
}

func (d *Deck) SetLoading(v bool) {
	d.mu.Lock()
	d.loading = v
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
}

// BeginSearch empties the deck and claims the first page of a new search
// for a stay of the given length.
func (d *Deck) BeginSearch(nights int) Claim {
	d.mu.Lock()
	d.resetLocked()
	d.nights = nights
	d.loading = true
	c := Claim{Page: 1, gen: d.gen}
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
	return c
}

// BeginPage claims the next page fetch. It fails when no prefetch is
// wanted, which includes another fetch already being in flight.
func (d *Deck) BeginPage() (Claim, bool) {
	d.mu.Lock()
	if d.page == 0 || !d.shouldPrefetchLocked() {
		d.mu.Unlock()
		return Claim{}, false
	}
	d.loading = true
	c := Claim{Page: d.page + 1, gen: d.gen}
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
	return c, true
}

// Deliver lands a claimed fetch. The first page replaces the deck contents;
// later pages append, skipping hotels already fetched. A stale claim
// changes nothing and reports false.
func (d *Deck) Deliver(c Claim, searchID string, hotels []domain.Hotel, hasMore bool) (added int, ok bool) {
	d.mu.Lock()
	if c.gen != d.gen {
		d.mu.Unlock()
		return 0, false
	}
	if c.Page <= 1 {
		d.hotels = nil
		d.origin = map[string]origin{}
		d.searchID = searchID
		d.cursor = 0
		d.page = 1
	} else {
		if searchID == "" {
			searchID = d.searchID
		}
		if c.Page > d.page {
			d.page = c.Page
		}
	}
	added = d.appendLocked(searchID, hotels)
	d.hasMore = hasMore
	d.loading = false
	d.err = ""
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
	return added, true
}

// Fail records a failed claimed fetch; the hotels already fetched stay.
// A stale claim changes nothing and reports false.
func (d *Deck) Fail(c Claim, msg string) bool {
	d.mu.Lock()
	if c.gen != d.gen {
		d.mu.Unlock()
		return false
	}
	d.err = msg
	d.loading = false
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
	return true
}

// SetResults replaces the deck contents with the first page of a search
// whose stay length is unknown. Outstanding claims go stale.
func (d *Deck) SetResults(searchID string, hotels []domain.Hotel, hasMore bool) {
	d.mu.Lock()
	d.gen++
	d.nights = 0
	c := Claim{Page: 1, gen: d.gen}
	d.mu.Unlock()
	d.Deliver(c, searchID, hotels, hasMore)
}

func (d *Deck) appendLocked(searchID string, hotels []domain.Hotel) int {
	seen := make(map[string]struct{}, len(d.hotels))
	for _, h := range d.hotels {
		seen[h.ID] = struct{}{}
	}
	added := 0
	for _, h := range hotels {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		d.hotels = append(d.hotels, h)
		d.origin[h.ID] = origin{searchID: searchID, nights: d.nights}
		added++
	}
	return added
}

// SetError records a failed fetch; the hotels already fetched stay.
func (d *Deck) SetError(msg string) {
	d.mu.Lock()
	d.err = msg
	d.loading = false
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
}

func (d *Deck) Err() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

func (d *Deck) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

func (d *Deck) HasMore() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hasMore
}

func (d *Deck) SearchID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.searchID
}

// Reset empties the deck, dismissed ids included.
func (d *Deck) Reset() {
	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()
	d.emit(Event{Kind: EventDeck})
}

func (d *Deck) View() DeckView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v := d.visibleLocked()
	out := DeckView{
		SearchID:       d.searchID,
		Hotels:         v,
		Cursor:         d.cursor,
		Fetched:        len(d.hotels),
		Dismissed:      len(d.dismissed),
		Page:           d.page,
		Loading:        d.loading,
		HasMore:        d.hasMore,
		ShouldPrefetch: d.shouldPrefetchLocked(),
		Error:          d.err,
	}
	if d.cursor >= 0 && d.cursor < len(v) {
		cur := v[d.cursor]
		out.Current = &cur
	}
	return out
}

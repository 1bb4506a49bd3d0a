package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"swipestay/internal/app"
	"swipestay/internal/domain"
)

const (
	DefaultPageSize    = 15
	DefaultRateWorkers = 4
	DefaultIdleTTL     = 30 * time.Minute

	msgSearchFailed   = "search failed"
	msgLoadMoreFailed = "failed to load more hotels"
)

// Session owns the five stores of one traveller and runs the network-backed
// mutations. Failures become state (deck error, empty rate list) and are
// also returned to the caller.
type Session struct {
	ID    string
	Owner string

	Criteria   *Criteria
	Deck       *Deck
	Shortlist  *Shortlist
	Rates      *RateCache
	Selections *Selections

	search   domain.HotelSearcher
	pageSize int
	workers  int
	created  time.Time
	lg       zerolog.Logger
}

// View is a point-in-time copy of the whole session.
type View struct {
	ID         string                   `json:"id"`
	Owner      string                   `json:"owner"`
	Criteria   CriteriaState            `json:"criteria"`
	Deck       DeckView                 `json:"deck"`
	Shortlist  []domain.Hotel           `json:"shortlist"`
	IsFull     bool                     `json:"shortlist_full"`
	Rates      map[string][]domain.Room `json:"rates"`
	Loading    []string                 `json:"rates_loading"`
	Selections []domain.RoomSelection   `json:"selections"`
	CreatedAt  time.Time                `json:"created_at"`
}

type Options struct {
	PageSize    int
	RateWorkers int

	// IdleTTL is how long a session may go untouched before the manager drops it.
	IdleTTL time.Duration
	Clock   clock.Clock
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.RateWorkers <= 0 {
		o.RateWorkers = DefaultRateWorkers
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = DefaultIdleTTL
	}
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	return o
}

func New(id, owner string, search domain.HotelSearcher, repo domain.ShortlistRepository, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		ID:         id,
		Owner:      owner,
		Criteria:   NewCriteria(),
		Deck:       NewDeck(),
		Shortlist:  NewShortlist(owner, repo),
		Rates:      NewRateCache(),
		Selections: NewSelections(),
		search:     search,
		pageSize:   opts.PageSize,
		workers:    opts.RateWorkers,
		created:    opts.Clock.Now().UTC(),
		lg:         log.With().Str("component", "session").Str("session", id).Logger(),
	}
}

// Search runs a fresh search from the current criteria. The deck is reset
// first, so dismissals from the previous search are forgotten. A search
// overtaken by a newer one leaves the deck alone.
func (s *Session) Search(ctx context.Context) error {
	q, err := s.Criteria.Query(1)
	if err != nil {
		return err
	}
	claim := s.Deck.BeginSearch(app.Nights(q.CheckIn, q.CheckOut))

	res, err := s.search.SearchHotels(ctx, q)
	if err != nil {
		s.lg.Warn().Err(err).Str("place_id", q.PlaceID).Msg("search failed")
		s.Deck.Fail(claim, msgSearchFailed)
		return err
	}
	hotels := app.ApplyFilters(res.Hotels, s.Criteria.Snapshot().Filters)
	if _, ok := s.Deck.Deliver(claim, res.SearchID, hotels, len(res.Hotels) >= s.pageSize); !ok {
		s.lg.Debug().Str("search_id", res.SearchID).Msg("search superseded; results dropped")
		return nil
	}
	s.lg.Info().Str("search_id", res.SearchID).Int("hotels", len(hotels)).Msg("search done")
	return nil
}

// LoadMore fetches the next page when the deck wants one. It reports
// whether a fetch was made. A page that returns after a new search
// started is dropped.
func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	claim, ok := s.Deck.BeginPage()
	if !ok {
		return false, nil
	}
	q, err := s.Criteria.Query(claim.Page)
	if err != nil {
		s.Deck.Fail(claim, "")
		return false, err
	}
	res, err := s.search.SearchHotels(ctx, q)
	if err != nil {
		s.lg.Warn().Err(err).Int("page", claim.Page).Msg("load more failed")
		s.Deck.Fail(claim, msgLoadMoreFailed)
		return true, err
	}
	hotels := app.ApplyFilters(res.Hotels, s.Criteria.Snapshot().Filters)
	added, ok := s.Deck.Deliver(claim, res.SearchID, hotels, len(res.Hotels) >= s.pageSize)
	if !ok {
		s.lg.Debug().Int("page", claim.Page).Msg("stale page dropped")
		return true, nil
	}
	s.lg.Debug().Int("page", claim.Page).Int("added", added).Msg("page appended")
	return true, nil
}

// LoadRates fetches rooms for one hotel unless they are cached or already
// being fetched. A failed fetch caches an empty list. Prices are spread
// over the nights of the search that found the hotel.
func (s *Session) LoadRates(ctx context.Context, hotelID string) error {
	searchID := s.Deck.SearchIDFor(hotelID)
	if searchID == "" {
		return domain.NewValidationError("search_id", "run a search before loading rates")
	}
	if !s.Rates.Begin(hotelID) {
		return nil
	}
	nights := s.Deck.NightsFor(hotelID)
	if nights <= 0 {
		nights = s.Criteria.Snapshot().Nights()
	}
	res, err := s.search.GetHotelRates(ctx, searchID, hotelID, nights)
	if err != nil {
		s.lg.Warn().Err(err).Str("hotel_id", hotelID).Msg("rates failed")
		s.Rates.Fail(hotelID)
		return err
	}
	s.Rates.Set(hotelID, res.Rooms)
	return nil
}

// RefreshRates drops the cached rooms for a hotel and fetches them again.
func (s *Session) RefreshRates(ctx context.Context, hotelID string) error {
	if s.Rates.IsLoading(hotelID) {
		return nil
	}
	s.Rates.Forget(hotelID)
	return s.LoadRates(ctx, hotelID)
}

// PrefetchRates loads rates for several hotels with bounded parallelism.
func (s *Session) PrefetchRates(ctx context.Context, hotelIDs []string) error {
	sem := semaphore.NewWeighted(int64(s.workers))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		first  error
		failed int
	)
	for _, id := range hotelIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return errors.Wrap(err, "prefetch rates")
		}
		wg.Add(1)
		go func(hotelID string) {
			defer wg.Done()
			defer sem.Release(1)
			if err := s.LoadRates(ctx, hotelID); err != nil {
				mu.Lock()
				if first == nil {
					first = err
				}
				failed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	if first != nil {
		return errors.Wrapf(first, "%d of %d rate fetches failed", failed, len(hotelIDs))
	}
	return nil
}

// CompareRates prefetches rates for everything on the shortlist.
func (s *Session) CompareRates(ctx context.Context) error {
	return s.PrefetchRates(ctx, s.Shortlist.IDs())
}

// ShortlistFromDeck adds a fetched hotel to the shortlist.
func (s *Session) ShortlistFromDeck(hotelID string) error {
	h, ok := s.Deck.Find(hotelID)
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "hotel %s is not in the deck", hotelID)
	}
	return s.Shortlist.TryAdd(h)
}

// SelectRate records a room/rate choice built from the cached rates.
func (s *Session) SelectRate(hotelID, roomID, rateID string) (domain.RoomSelection, error) {
	rooms, ok := s.Rates.Get(hotelID)
	if !ok {
		return domain.RoomSelection{}, errors.Wrapf(domain.ErrNotFound, "no rates loaded for hotel %s", hotelID)
	}
	for _, room := range rooms {
		if room.ID != roomID {
			continue
		}
		for _, rate := range room.Rates {
			if rate.ID != rateID {
				continue
			}
			sel := domain.RoomSelection{
				HotelID:   hotelID,
				RoomID:    room.ID,
				RateID:    rate.ID,
				RoomName:  room.Name,
				RateName:  rate.Name,
				BoardType: rate.BoardType,
				Pricing:   rate.Pricing,
			}
			s.Selections.Select(sel)
			return sel, nil
		}
		return domain.RoomSelection{}, errors.Wrapf(domain.ErrNotFound, "rate %s in room %s", rateID, roomID)
	}
	return domain.RoomSelection{}, errors.Wrapf(domain.ErrNotFound, "room %s of hotel %s", roomID, hotelID)
}

func (s *Session) View() View {
	rates, loading := s.Rates.Snapshot()
	return View{
		ID:         s.ID,
		Owner:      s.Owner,
		Criteria:   s.Criteria.Snapshot(),
		Deck:       s.Deck.View(),
		Shortlist:  s.Shortlist.Hotels(),
		IsFull:     s.Shortlist.IsFull(),
		Rates:      rates,
		Loading:    loading,
		Selections: s.Selections.All(),
		CreatedAt:  s.created,
	}
}

package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipestay/internal/app"
	"swipestay/internal/domain"
	"swipestay/internal/session"
)

func newSession(t *testing.T, f *fakeSearcher, opts session.Options) *session.Session {
	t.Helper()
	s := session.New("sid", "owner", f, nil, opts)
	require.NoError(t, s.Criteria.Replace(filledCriteria()))
	return s
}

func roomsWithRates() []domain.Room {
	return []domain.Room{{
		ID:   "r1",
		Name: "Deluxe King",
		Rates: []domain.Rate{
			{ID: "x", Name: "Room only", BoardType: domain.BoardRoomOnly, Pricing: domain.Pricing{Total: 200, Currency: "USD", PerNight: 100}},
			{ID: "y", Name: "Breakfast", BoardType: domain.BoardBreakfast, Pricing: domain.Pricing{Total: 240, Currency: "USD", PerNight: 120}},
		},
	}}
}

func TestSearch_EndToEndNormalizesLeadPrice(t *testing.T) {
	gw := &rawGateway{body: `{"search_id":"S1","hotels":[{"id":"H1","name":"One",
		"price_info":{"total_amount":200},"currency_info":{"original":"USD"}}]}`}
	s := session.New("sid", "owner", app.NewSearchService(gw, "", 0), nil, session.Options{})
	require.NoError(t, s.Criteria.Replace(session.CriteriaState{
		Destination: &domain.Place{ID: "P1"},
		CheckIn:     "2025-06-01",
		CheckOut:    "2025-06-03",
		Rooms:       []domain.RoomOccupancy{{Adults: 2}},
		Currency:    "USD",
	}))

	require.NoError(t, s.Search(context.Background()))
	cur, ok := s.Deck.Current()
	require.True(t, ok)
	assert.Equal(t, domain.LeadPrice{Amount: 200, Currency: "USD", PerNight: 100}, cur.LeadPrice)
	assert.Equal(t, "S1", s.Deck.SearchID())
	assert.False(t, s.Deck.HasMore(), "one hotel is less than a page")
	assert.Equal(t, []string{app.AvailabilityPath}, gw.paths)
}

func TestSearch_InvalidCriteriaTouchNothing(t *testing.T) {
	f := newFakeSearcher()
	s := session.New("sid", "owner", f, nil, session.Options{})

	err := s.Search(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.queries)
	assert.Empty(t, s.Deck.Err())
}

func TestSearch_FailureLandsInDeckError(t *testing.T) {
	f := newFakeSearcher()
	f.searchErr = &domain.UpstreamError{Status: 503, Method: "POST", Path: app.AvailabilityPath}
	s := newSession(t, f, session.Options{})

	err := s.Search(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
	assert.Equal(t, "search failed", s.Deck.Err())
	assert.False(t, s.Deck.Loading())
	assert.Empty(t, s.Deck.Visible())
}

func TestSearch_NewSearchForgetsDismissals(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 4)
	s := newSession(t, f, session.Options{})

	require.NoError(t, s.Search(context.Background()))
	require.True(t, s.Deck.Dismiss("h0"))
	require.NoError(t, s.Search(context.Background()))
	assert.Len(t, s.Deck.Visible(), 4)
}

func TestSearch_AppliesFilters(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = []domain.Hotel{hotel("a", 300), hotel("b", 80), hotel("c", 150)}
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Criteria.SetFilters(domain.Filters{MaxPrice: 200, Sort: domain.SortPriceAsc}))

	require.NoError(t, s.Search(context.Background()))
	assert.Equal(t, []string{"b", "c"}, ids(s.Deck.Visible()))
}

func TestLoadMore_PagesUntilShortPage(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("a", 3)
	f.pages[2] = append(hotels("a", 1), hotels("b", 2)...)
	s := newSession(t, f, session.Options{PageSize: 3})

	require.NoError(t, s.Search(context.Background()))
	require.True(t, s.Deck.HasMore())
	require.True(t, s.Deck.ShouldPrefetch())

	fetched, err := s.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, []string{"a0", "a1", "a2", "b0", "b1"}, ids(s.Deck.Visible()))
	assert.True(t, s.Deck.HasMore(), "page 2 returned a full page")

	f.pages[3] = hotels("c", 1)
	fetched, err = s.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.False(t, s.Deck.HasMore())

	fetched, err = s.LoadMore(context.Background())
	require.NoError(t, err)
	assert.False(t, fetched)

	require.Len(t, f.queries, 3)
	assert.Equal(t, 3, f.queries[2].Page)
}

func TestLoadMore_PageFromPreviousSearchIsDropped(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("a", 15)
	f.pages[2] = hotels("old", 15)
	gate := make(chan struct{})
	f.pageGates = map[int]chan struct{}{2: gate}
	s := newSession(t, f, session.Options{})

	require.NoError(t, s.Search(context.Background()))
	for i := 0; i < 12; i++ {
		s.Deck.Next()
	}
	require.True(t, s.Deck.ShouldPrefetch())

	done := make(chan error, 1)
	go func() {
		_, err := s.LoadMore(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.queryCount() == 2 }, time.Second, time.Millisecond)

	f.mu.Lock()
	f.searchID = "S2"
	f.pages[1] = hotels("b", 15)
	f.pageGates = nil
	f.mu.Unlock()
	require.NoError(t, s.Search(context.Background()))

	close(gate)
	require.NoError(t, <-done)

	v := s.Deck.View()
	assert.Equal(t, "S2", v.SearchID)
	assert.Equal(t, ids(hotels("b", 15)), ids(v.Hotels))
	assert.Equal(t, 15, v.Fetched)
	assert.Equal(t, 1, v.Page)
	assert.False(t, v.Loading)

	// the new search still asks for its own page 2
	f.mu.Lock()
	f.pages[2] = hotels("c", 2)
	f.mu.Unlock()
	for i := 0; i < 12; i++ {
		s.Deck.Next()
	}
	fetched, err := s.LoadMore(context.Background())
	require.NoError(t, err)
	require.True(t, fetched)
	assert.Equal(t, 2, f.queries[len(f.queries)-1].Page)
	assert.Equal(t, 17, s.Deck.View().Fetched)
}

func TestLoadMore_FailureKeepsFetchedHotels(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("a", 3)
	s := newSession(t, f, session.Options{PageSize: 3})
	require.NoError(t, s.Search(context.Background()))

	f.mu.Lock()
	f.searchErr = errors.New("timeout")
	f.mu.Unlock()
	_, err := s.LoadMore(context.Background())
	require.Error(t, err)
	assert.Equal(t, "failed to load more hotels", s.Deck.Err())
	assert.Len(t, s.Deck.Visible(), 3)
	assert.False(t, s.Deck.Loading())
}

func TestLoadRates_CachesAndUsesNights(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 2)
	f.rooms["h0"] = roomsWithRates()
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))

	require.NoError(t, s.LoadRates(context.Background(), "h0"))
	require.NoError(t, s.LoadRates(context.Background(), "h0"))
	assert.Equal(t, 1, f.calls("h0"))
	assert.Equal(t, []int{2}, f.rateNights)

	rooms, ok := s.Rates.Get("h0")
	require.True(t, ok)
	assert.Len(t, rooms, 1)
}

func TestLoadRates_UsesNightsOfTheSearch(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 1)
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))

	st := s.Criteria.Snapshot()
	st.CheckOut = "2025-06-06"
	require.NoError(t, s.Criteria.Replace(st))

	require.NoError(t, s.LoadRates(context.Background(), "h0"))
	assert.Equal(t, []int{2}, f.rateNights, "dates edited after the search do not reprice its hotels")
}

func TestLoadRates_RequiresASearch(t *testing.T) {
	f := newFakeSearcher()
	s := newSession(t, f, session.Options{})
	err := s.LoadRates(context.Background(), "h0")
	assert.True(t, domain.IsValidation(err))
	_, ok := s.Rates.Get("h0")
	assert.False(t, ok)
}

func TestLoadRates_FailureCachesEmptyList(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 1)
	f.ratesErr = &domain.UpstreamError{Status: 500, Method: "POST", Path: app.RatesPath}
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))

	require.Error(t, s.LoadRates(context.Background(), "h0"))
	rooms, ok := s.Rates.Get("h0")
	assert.True(t, ok)
	assert.Empty(t, rooms)
	assert.False(t, s.Rates.IsLoading("h0"))
}

func TestLoadRates_ConcurrentCallsFetchOnce(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 1)
	f.rooms["h0"] = roomsWithRates()
	f.gate = make(chan struct{})
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.LoadRates(context.Background(), "h0") }()
	require.Eventually(t, func() bool { return s.Rates.IsLoading("h0") }, time.Second, time.Millisecond)

	require.NoError(t, s.LoadRates(context.Background(), "h0"))
	close(f.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.calls("h0"))
}

func TestPrefetchRates_BoundedFanOut(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 8)
	s := newSession(t, f, session.Options{RateWorkers: 2})
	require.NoError(t, s.Search(context.Background()))

	var want []string
	for i := 0; i < 8; i++ {
		want = append(want, fmt.Sprintf("h%d", i))
	}
	require.NoError(t, s.PrefetchRates(context.Background(), want))

	for _, id := range want {
		_, ok := s.Rates.Get(id)
		assert.True(t, ok, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.LessOrEqual(t, f.maxFlight, 2)
}

func TestCompareRates_ReportsFailures(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 3)
	f.ratesErr = errors.New("boom")
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))
	require.NoError(t, s.ShortlistFromDeck("h0"))
	require.NoError(t, s.ShortlistFromDeck("h2"))

	err := s.CompareRates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 rate fetches failed")
}

func TestShortlistFromDeck(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 2)
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))

	require.NoError(t, s.ShortlistFromDeck("h1"))
	assert.ErrorIs(t, s.ShortlistFromDeck("h1"), domain.ErrAlreadyShortlisted)
	assert.ErrorIs(t, s.ShortlistFromDeck("zz"), domain.ErrNotFound)
	assert.Equal(t, []string{"h1"}, s.Shortlist.IDs())
}

func TestSelectRate(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 1)
	f.rooms["h0"] = roomsWithRates()
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))

	_, err := s.SelectRate("h0", "r1", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound, "rates not loaded yet")

	require.NoError(t, s.LoadRates(context.Background(), "h0"))
	sel, err := s.SelectRate("h0", "r1", "x")
	require.NoError(t, err)
	assert.Equal(t, domain.BoardRoomOnly, sel.BoardType)

	sel, err = s.SelectRate("h0", "r1", "y")
	require.NoError(t, err)
	got, ok := s.Selections.Get("h0")
	require.True(t, ok)
	assert.Equal(t, sel, got)
	assert.Equal(t, "Deluxe King", got.RoomName)
	assert.Equal(t, 120.0, got.Pricing.PerNight)
	assert.Len(t, s.Selections.All(), 1)

	_, err = s.SelectRate("h0", "r1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.SelectRate("h0", "r9", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestView(t *testing.T) {
	f := newFakeSearcher()
	f.pages[1] = hotels("h", 2)
	s := newSession(t, f, session.Options{})
	require.NoError(t, s.Search(context.Background()))
	s.Rates.Fail("h1")

	v := s.View()
	assert.Equal(t, "sid", v.ID)
	assert.Equal(t, "owner", v.Owner)
	assert.Len(t, v.Deck.Hotels, 2)
	assert.Contains(t, v.Rates, "h1")
	assert.Empty(t, v.Selections)
}

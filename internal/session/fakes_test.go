package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"swipestay/internal/domain"
)

func hotel(id string, perNight float64) domain.Hotel {
	return domain.Hotel{ID: id, Name: "Hotel " + id, StarRating: 4, LeadPrice: domain.LeadPrice{Amount: perNight * 2, Currency: "USD", PerNight: perNight}}
}

func hotels(prefix string, n int) []domain.Hotel {
	out := make([]domain.Hotel, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, hotel(fmt.Sprintf("%s%d", prefix, i), float64(100+i)))
	}
	return out
}

func ids(hs []domain.Hotel) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.ID)
	}
	return out
}

// fakeSearcher serves canned pages and rooms.
type fakeSearcher struct {
	mu         sync.Mutex
	pages      map[int][]domain.Hotel
	searchErr  error
	queries    []domain.HotelQuery
	rooms      map[string][]domain.Room
	ratesErr   error
	rateCalls  map[string]int
	rateNights []int
	gate       chan struct{}
	inFlight   int
	maxFlight  int

	searchID  string
	pageGates map[int]chan struct{}
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{pages: map[int][]domain.Hotel{}, rooms: map[string][]domain.Room{}, rateCalls: map[string]int{}}
}

func (f *fakeSearcher) SearchPlaces(ctx context.Context, text string) (domain.PlacesResponse, error) {
	return domain.PlacesResponse{}, nil
}

func (f *fakeSearcher) SearchHotels(ctx context.Context, q domain.HotelQuery) (domain.AvailabilityResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	if f.searchErr != nil {
		err := f.searchErr
		f.mu.Unlock()
		return domain.AvailabilityResponse{}, err
	}
	page := q.Page
	if page == 0 {
		page = 1
	}
	hs := f.pages[page]
	sid := f.searchID
	if sid == "" {
		sid = "S1"
	}
	gate := f.pageGates[page]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return domain.AvailabilityResponse{SearchID: sid, Hotels: hs, TotalResults: len(hs)}, nil
}

func (f *fakeSearcher) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeSearcher) GetHotelRates(ctx context.Context, searchID, hotelID string, nights int) (domain.RatesResponse, error) {
	f.mu.Lock()
	f.rateCalls[hotelID]++
	f.rateNights = append(f.rateNights, nights)
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.ratesErr != nil {
		return domain.RatesResponse{}, f.ratesErr
	}
	return domain.RatesResponse{SearchID: searchID, Rooms: f.rooms[hotelID]}, nil
}

func (f *fakeSearcher) calls(hotelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rateCalls[hotelID]
}

// memRepo is an in-memory shortlist repository.
type memRepo struct {
	mu      sync.Mutex
	data    map[string][]domain.Hotel
	saves   int
	saveErr error
	loadErr error
}

func newMemRepo() *memRepo { return &memRepo{data: map[string][]domain.Hotel{}} }

func (r *memRepo) Load(ctx context.Context, owner string) ([]domain.Hotel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]domain.Hotel{}, r.data[owner]...), nil
}

func (r *memRepo) Save(ctx context.Context, owner string, hs []domain.Hotel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.data[owner] = append([]domain.Hotel{}, hs...)
	return nil
}

func (r *memRepo) saved(owner string) ([]domain.Hotel, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Hotel{}, r.data[owner]...), r.saves
}

// rawGateway answers every call with one canned body.
type rawGateway struct {
	mu    sync.Mutex
	body  string
	paths []string
}

func (g *rawGateway) Get(ctx context.Context, path string) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paths = append(g.paths, path)
	return json.RawMessage(g.body), nil
}

func (g *rawGateway) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return g.Get(ctx, path)
}

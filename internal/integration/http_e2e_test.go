//go:build integration || !unit

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipestay/internal/adapters/easygds"
	httpserver "swipestay/internal/adapters/http_server"
	redisad "swipestay/internal/adapters/redis"
	"swipestay/internal/app"
	"swipestay/internal/domain"
	"swipestay/internal/session"
)

const (
	placesBody = `{"places":[{"id":"P-SIN","name":"Singapore","long_name":"Singapore, SG","type":"city","country_code":"SG"}]}`
	availBody  = `{"search_id":"s-1","total":2,"hotels":[
		{"id":"h1","name":"Alpha","star":4,"price_info":{"total_amount":300},"currency_info":{"conversion":"USD"}},
		{"id":"h2","name":"Beta","star":3,"price_info":{"total_amount":"200"},"currency_info":{"conversion":"USD"}}]}`
	ratesBody = `{"search_id":"s-1","rooms":[{"room_id":"r1","room_name":"Deluxe King",
		"rates":[{"rate_id":"rt1","board_type":"BB","pricing":{"total":300,"currency":"USD"}}]}]}`
)

// upstream is a scripted easyGDS: it issues numbered tokens and rejects the
// first availability call with 401 to force one re-authentication.
type upstream struct {
	*httptest.Server

	mu        sync.Mutex
	authCalls int
	availSeen int
	paths     []string
	bodies    map[string]string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{bodies: map[string]string{}}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if r.URL.Path == "/api/v2/auth" {
		u.authCalls++
		_, _ = fmt.Fprintf(w, `{"token":"tok-%d"}`, u.authCalls)
		return
	}
	u.paths = append(u.paths, r.URL.Path)
	b, _ := io.ReadAll(r.Body)
	u.bodies[r.URL.Path] = string(b)

	switch r.URL.Path {
	case app.PlacesPath:
		_, _ = io.WriteString(w, placesBody)
	case app.AvailabilityPath:
		u.availSeen++
		if u.availSeen == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"expired"}`)
			return
		}
		_, _ = io.WriteString(w, availBody)
	case app.RatesPath:
		_, _ = io.WriteString(w, ratesBody)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type stack struct {
	api   *httptest.Server
	up    *upstream
	redis *miniredis.Miniredis
}

func newStack(t *testing.T) *stack {
	t.Helper()
	up := newUpstream(t)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	env := easygds.Env{BaseURL: up.URL}
	auth := easygds.NewAuthenticator(env, easygds.Credentials{Email: "svc@example.com", Password: "pw"},
		redisad.NewWithClient(rc, ""), time.Hour)
	gw, err := easygds.New(env, auth, 100)
	require.NoError(t, err)

	search := app.NewSearchService(gw, "en-US", 5000)
	srv := httpserver.New(0)
	srv.MountHandlers(&httpserver.Handlers{Search: search})
	srv.MountSessions(&httpserver.SessionHandlers{Sessions: session.NewManager(search, nil, session.Options{})})

	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)
	return &stack{api: api, up: up, redis: mr}
}

func (s *stack) call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.api.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := s.api.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestEndToEnd_SwipeShortlistAndSelect(t *testing.T) {
	s := newStack(t)

	// destination lookup through the stateless boundary
	var places domain.PlacesResponse
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/api/places?search_text=singapore", nil, &places))
	require.Len(t, places.Places, 1)
	dest := places.Places[0]
	assert.Equal(t, "P-SIN", dest.ID)

	var sess session.View
	require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/v1/sessions", map[string]any{}, &sess))
	require.NotEmpty(t, sess.ID)
	base := "/v1/sessions/" + sess.ID

	criteria := session.CriteriaState{
		Destination: &dest,
		CheckIn:     "2030-03-01",
		CheckOut:    "2030-03-03",
		Rooms:       []domain.RoomOccupancy{{Adults: 2, Children: []int{}}},
		Currency:    "usd",
	}
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPut, base+"/criteria", criteria, nil))

	var deck session.DeckView
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, base+"/search", nil, &deck))
	require.Len(t, deck.Hotels, 2)
	assert.Equal(t, "s-1", deck.SearchID)
	assert.Equal(t, "h1", deck.Current.ID)
	assert.Equal(t, 150.0, deck.Hotels[0].LeadPrice.PerNight)
	assert.Equal(t, 100.0, deck.Hotels[1].LeadPrice.PerNight)
	assert.False(t, deck.HasMore, "a short page ends the deck")

	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, base+"/shortlist/h1", nil, nil))
	assert.Equal(t, http.StatusConflict, s.call(t, http.MethodPost, base+"/shortlist/h1", nil, nil))

	var rates struct {
		Rooms []domain.Room `json:"rooms"`
		Error string        `json:"error"`
	}
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, base+"/rates/h1", nil, &rates))
	require.Empty(t, rates.Error)
	require.Len(t, rates.Rooms, 1)
	require.Len(t, rates.Rooms[0].Rates, 1)
	assert.Equal(t, domain.BoardBreakfast, rates.Rooms[0].Rates[0].BoardType)

	var sel domain.RoomSelection
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPut, base+"/selections/h1",
		map[string]string{"room_id": "r1", "rate_id": "rt1"}, &sel))
	assert.Equal(t, "Deluxe King", sel.RoomName)

	var final session.View
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, base, nil, &final))
	assert.Len(t, final.Shortlist, 1)
	assert.Len(t, final.Selections, 1)
	assert.Equal(t, "USD", final.Criteria.Currency)

	// upstream saw one 401 and exactly one re-authentication
	s.up.mu.Lock()
	defer s.up.mu.Unlock()
	assert.Equal(t, 2, s.up.authCalls)
	assert.Equal(t, 2, s.up.availSeen)
	assert.JSONEq(t, `{"search_id":"s-1","hotel_id":"h1"}`, s.up.bodies[app.RatesPath])
	assert.True(t, strings.Contains(s.up.bodies[app.AvailabilityPath], `"place_id":"P-SIN"`))

	tok, err := s.redis.Get(redisad.DefaultTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok, "refreshed token is cached for every replica")
}

func TestEndToEnd_SearchWithoutDestinationMakesNoUpstreamCall(t *testing.T) {
	s := newStack(t)

	var sess session.View
	require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/v1/sessions", map[string]any{}, &sess))
	assert.Equal(t, http.StatusBadRequest, s.call(t, http.MethodPost, "/v1/sessions/"+sess.ID+"/search", nil, nil))

	s.up.mu.Lock()
	defer s.up.mu.Unlock()
	assert.Empty(t, s.up.paths)
	assert.Zero(t, s.up.authCalls)
}

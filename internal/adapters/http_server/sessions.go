package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"swipestay/internal/domain"
	"swipestay/internal/session"
)

// SessionHandlers expose the per-traveller state stores.
type SessionHandlers struct{ Sessions *session.Manager }

type createSessionRequest struct {
	Owner string `json:"owner"`
}

type selectRequest struct {
	RoomID string `json:"room_id"`
	RateID string `json:"rate_id"`
}

type shortlistView struct {
	Hotels []domain.Hotel `json:"hotels"`
	Full   bool           `json:"full"`
	Max    int            `json:"max"`
}

type ratesView struct {
	HotelID string        `json:"hotel_id"`
	Rooms   []domain.Room `json:"rooms"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

type compareView struct {
	Rates map[string][]domain.Room `json:"rates"`
	Error string                   `json:"error,omitempty"`
}

func (s *Server) MountSessions(h *SessionHandlers) {
	s.mux.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.create)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.withSession(h.get))
			r.Delete("/", h.remove)

			r.Put("/criteria", h.withSession(h.putCriteria))
			r.Delete("/criteria", h.withSession(h.resetCriteria))
			r.Post("/search", h.withSession(h.search))

			r.Post("/deck/next", h.withSession(h.deckNext))
			r.Post("/deck/prev", h.withSession(h.deckPrev))
			r.Post("/deck/more", h.withSession(h.deckMore))
			r.Post("/deck/dismiss/{hotelID}", h.withSession(h.deckDismiss))

			r.Get("/shortlist", h.withSession(h.getShortlist))
			r.Delete("/shortlist", h.withSession(h.clearShortlist))
			r.Post("/shortlist/{hotelID}", h.withSession(h.addShortlist))
			r.Delete("/shortlist/{hotelID}", h.withSession(h.removeShortlist))

			r.Post("/rates/{hotelID}", h.withSession(h.loadRates))
			r.Get("/rates/{hotelID}", h.withSession(h.getRates))
			r.Post("/compare/rates", h.withSession(h.compareRates))

			r.Put("/selections/{hotelID}", h.withSession(h.selectRate))
			r.Delete("/selections/{hotelID}", h.withSession(h.clearSelection))
		})
	})
}

// withSession resolves {sid} or answers 404.
func (h *SessionHandlers) withSession(fn func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Sessions.Get(chi.URLParam(r, "sid"))
		if err != nil {
			writeError(w, err)
			return
		}
		fn(w, r, sess)
	}
}

func (h *SessionHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Sessions.Create(r.Context(), req.Owner)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sess.View())
}

func (h *SessionHandlers) get(w http.ResponseWriter, r *http.Request, s *session.Session) {
	writeJSON(w, http.StatusOK, s.View())
}

func (h *SessionHandlers) remove(w http.ResponseWriter, r *http.Request) {
	if !h.Sessions.Delete(chi.URLParam(r, "sid")) {
		writeError(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandlers) putCriteria(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var st session.CriteriaState
	if err := decodeBody(r, &st); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Criteria.Replace(st); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Criteria.Snapshot())
}

func (h *SessionHandlers) resetCriteria(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Criteria.Reset()
	writeJSON(w, http.StatusOK, s.Criteria.Snapshot())
}

func (h *SessionHandlers) search(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Search(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Deck.View())
}

func (h *SessionHandlers) deckNext(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Deck.Next()
	writeJSON(w, http.StatusOK, s.Deck.View())
}

func (h *SessionHandlers) deckPrev(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Deck.Prev()
	writeJSON(w, http.StatusOK, s.Deck.View())
}

func (h *SessionHandlers) deckMore(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if _, err := s.LoadMore(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Deck.View())
}

func (h *SessionHandlers) deckDismiss(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Deck.Dismiss(chi.URLParam(r, "hotelID"))
	writeJSON(w, http.StatusOK, s.Deck.View())
}

func shortlistOf(s *session.Session) shortlistView {
	return shortlistView{Hotels: s.Shortlist.Hotels(), Full: s.Shortlist.IsFull(), Max: session.MaxShortlist}
}

func (h *SessionHandlers) getShortlist(w http.ResponseWriter, r *http.Request, s *session.Session) {
	writeJSON(w, http.StatusOK, shortlistOf(s))
}

func (h *SessionHandlers) clearShortlist(w http.ResponseWriter, r *http.Request, s *session.Session) {
	s.Shortlist.Clear()
	writeJSON(w, http.StatusOK, shortlistOf(s))
}

func (h *SessionHandlers) addShortlist(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.ShortlistFromDeck(chi.URLParam(r, "hotelID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shortlistOf(s))
}

func (h *SessionHandlers) removeShortlist(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if !s.Shortlist.Remove(chi.URLParam(r, "hotelID")) {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, shortlistOf(s))
}

func ratesOf(s *session.Session, hotelID string) (ratesView, bool) {
	rooms, ok := s.Rates.Get(hotelID)
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return ratesView{HotelID: hotelID, Rooms: rooms, Loading: s.Rates.IsLoading(hotelID)}, ok
}

func (h *SessionHandlers) loadRates(w http.ResponseWriter, r *http.Request, s *session.Session) {
	hotelID := chi.URLParam(r, "hotelID")
	if err := s.LoadRates(r.Context(), hotelID); err != nil {
		if domain.IsValidation(err) {
			writeError(w, err)
			return
		}
		// the failure is already cached as an empty list
		log.Warn().Err(err).Str("hotel_id", hotelID).Msg("rates fetch failed")
		v, _ := ratesOf(s, hotelID)
		v.Error = "rates unavailable"
		writeJSON(w, http.StatusOK, v)
		return
	}
	v, _ := ratesOf(s, hotelID)
	writeJSON(w, http.StatusOK, v)
}

func (h *SessionHandlers) getRates(w http.ResponseWriter, r *http.Request, s *session.Session) {
	hotelID := chi.URLParam(r, "hotelID")
	v, ok := ratesOf(s, hotelID)
	if !ok && !v.Loading {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *SessionHandlers) compareRates(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var out compareView
	if err := s.CompareRates(r.Context()); err != nil {
		log.Warn().Err(err).Str("session", s.ID).Msg("compare rates incomplete")
		out.Error = err.Error()
	}
	out.Rates = map[string][]domain.Room{}
	for _, id := range s.Shortlist.IDs() {
		if rooms, ok := s.Rates.Get(id); ok {
			out.Rates[id] = rooms
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandlers) selectRate(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sel, err := s.SelectRate(chi.URLParam(r, "hotelID"), req.RoomID, req.RateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (h *SessionHandlers) clearSelection(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if !s.Selections.Clear(chi.URLParam(r, "hotelID")) {
		writeError(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

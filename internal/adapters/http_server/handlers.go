package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"swipestay/internal/app"
	"swipestay/internal/domain"
)

const (
	placesMaxAge = "public, max-age=86400"
	searchMaxAge = "public, max-age=300"
	maxBodyBytes = 1 << 20
)

// Handlers serves the local boundary operations.
type Handlers struct{ Search domain.HotelSearcher }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type hotelSearchRequest struct {
	PlaceID  string                 `json:"place_id"`
	CheckIn  string                 `json:"check_in"`
	CheckOut string                 `json:"check_out"`
	Rooms    []domain.RoomOccupancy `json:"rooms"`
	Currency string                 `json:"currency"`
	Page     int                    `json:"page,omitempty"`
}

type ratesRequest struct {
	SearchID string `json:"search_id"`
	HotelID  string `json:"hotel_id"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
	Nights   int    `json:"nights,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/places", h.searchPlaces)
	s.mux.Post("/api/hotels/search", h.searchHotels)
	s.mux.Post("/api/hotels/rates", h.hotelRates)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthenticationError
		uerr *domain.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusBadRequest, "Invalid request", verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrShortlistFull), errors.Is(err, domain.ErrAlreadyShortlisted):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &aerr):
		log.Error().Err(err).Msg("upstream authentication failed")
		writeProblem(w, http.StatusBadGateway, "Upstream authentication failed", "")
	case errors.As(err, &uerr):
		// the message carries provider response text; it stays in the logs
		log.Error().Err(err).Int("status", uerr.Status).Str("path", uerr.Path).Msg("upstream request failed")
		writeProblem(w, http.StatusBadGateway, "Upstream error", fmt.Sprintf("hotel provider answered %d", uerr.Status))
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Upstream timeout", "")
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeBody reads a JSON body; an empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable sends v with an ETag and answers a matching If-None-Match with 304.
func writeCacheable(w http.ResponseWriter, r *http.Request, cacheControl string, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
		return
	}
	w.Header().Set("Cache-Control", cacheControl)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cacheable body")
	}
}

func (h *Handlers) searchPlaces(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("search_text")
	if text == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid request", "search_text is required")
		return
	}
	out, err := h.Search.SearchPlaces(r.Context(), text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, placesMaxAge, out)
}

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	var req hotelSearchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Search.SearchHotels(r.Context(), domain.HotelQuery{
		PlaceID:  req.PlaceID,
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Rooms:    req.Rooms,
		Currency: req.Currency,
		Page:     req.Page,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, searchMaxAge, out)
}

func (h *Handlers) hotelRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	nights := req.Nights
	if nights <= 0 {
		nights = app.Nights(req.CheckIn, req.CheckOut)
	}
	out, err := h.Search.GetHotelRates(r.Context(), req.SearchID, req.HotelID, nights)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

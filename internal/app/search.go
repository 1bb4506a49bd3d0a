package app

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog/log"

	"swipestay/internal/domain"
)

const (
	PlacesPath       = "/api/places"
	AvailabilityPath = "/api/v2/products/hotels/availabilities"
	RatesPath        = "/api/v2/products/hotels/rates"

	placeTypes           = "country,airport,administrative_area_level_4,administrative_area_level_3,locality"
	placesPerPage        = 10
	defaultLanguage      = "en-US"
	defaultSearchTimeout = 25000
	adultAge             = 18
)

type placesQuery struct {
	SearchText       string `url:"search_text"`
	Types            string `url:"types"`
	LanguageCode     string `url:"language_code"`
	PropertyIncluded bool   `url:"property_included"`
	PerPage          int    `url:"per_page"`
	Page             int    `url:"page"`
	WithProperties   bool   `url:"with_properties"`
}

type availabilityRoom struct {
	Idx      int   `json:"idx"`
	Adults   []int `json:"adults"`
	Children []int `json:"children"`
	Infants  []int `json:"infants"`
}

type availabilityRequest struct {
	CheckIn      string             `json:"checkin_date"`
	CheckOut     string             `json:"checkout_date"`
	PlaceID      string             `json:"place_id"`
	Rooms        []availabilityRoom `json:"rooms"`
	Currency     string             `json:"currency_code"`
	LanguageCode string             `json:"language_code"`
	Timeout      int                `json:"timeout"`
	Page         int                `json:"page,omitempty"`
}

type ratesRequest struct {
	SearchID string `json:"search_id"`
	HotelID  string `json:"hotel_id"`
}

// SearchService is the local boundary over the provider gateway: it validates
// input, shapes provider requests and normalizes what comes back.
type SearchService struct {
	gw        domain.Gateway
	lang      string
	timeoutMS int
}

func NewSearchService(gw domain.Gateway, lang string, timeoutMS int) *SearchService {
	if lang == "" {
		lang = defaultLanguage
	}
	if timeoutMS <= 0 {
		timeoutMS = defaultSearchTimeout
	}
	return &SearchService{gw: gw, lang: lang, timeoutMS: timeoutMS}
}

func (s *SearchService) SearchPlaces(ctx context.Context, text string) (domain.PlacesResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.PlacesResponse{}, domain.NewValidationError("search_text", "search_text is required")
	}
	v, err := query.Values(placesQuery{
		SearchText:   text,
		Types:        placeTypes,
		LanguageCode: s.lang,
		PerPage:      placesPerPage,
		Page:         1,
	})
	if err != nil {
		return domain.PlacesResponse{}, errors.Wrap(err, "encode places query")
	}
	raw, err := s.gw.Get(ctx, PlacesPath+"?"+v.Encode())
	if err != nil {
		return domain.PlacesResponse{}, errors.Wrap(err, "search places")
	}
	return NormalizePlaces(raw), nil
}

func (s *SearchService) SearchHotels(ctx context.Context, q domain.HotelQuery) (domain.AvailabilityResponse, error) {
	if err := ValidateQuery(q); err != nil {
		return domain.AvailabilityResponse{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(q.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	req := availabilityRequest{
		CheckIn:      q.CheckIn,
		CheckOut:     q.CheckOut,
		PlaceID:      q.PlaceID,
		Rooms:        make([]availabilityRoom, 0, len(q.Rooms)),
		Currency:     currency,
		LanguageCode: s.lang,
		Timeout:      s.timeoutMS,
	}
	if q.Page > 1 {
		req.Page = q.Page
	}
	for i, r := range q.Rooms {
		adults := make([]int, r.Adults)
		for j := range adults {
			adults[j] = adultAge
		}
		children := r.Children
		if children == nil {
			children = []int{}
		}
		req.Rooms = append(req.Rooms, availabilityRoom{Idx: i + 1, Adults: adults, Children: children, Infants: []int{}})
	}

	start := time.Now()
	raw, err := s.gw.Post(ctx, AvailabilityPath, req)
	if err != nil {
		return domain.AvailabilityResponse{}, errors.Wrapf(err, "search hotels in %s", q.PlaceID)
	}
	nights := Nights(q.CheckIn, q.CheckOut)
	out := NormalizeAvailability(raw, nights)
	out.SearchCriteria = &domain.SearchSummary{
		CheckIn:  q.CheckIn,
		CheckOut: q.CheckOut,
		Nights:   nights,
		Currency: currency,
	}
	log.Debug().
		Str("place_id", q.PlaceID).
		Int("page", q.Page).
		Int("hotels", len(out.Hotels)).
		Dur("took", time.Since(start)).
		Msg("availability search")
	return out, nil
}

func (s *SearchService) GetHotelRates(ctx context.Context, searchID, hotelID string, nights int) (domain.RatesResponse, error) {
	if strings.TrimSpace(searchID) == "" {
		return domain.RatesResponse{}, domain.NewValidationError("search_id", "search_id is required")
	}
	if strings.TrimSpace(hotelID) == "" {
		return domain.RatesResponse{}, domain.NewValidationError("hotel_id", "hotel_id is required")
	}
	if nights < 1 {
		nights = 1
	}
	raw, err := s.gw.Post(ctx, RatesPath, ratesRequest{SearchID: searchID, HotelID: hotelID})
	if err != nil {
		return domain.RatesResponse{}, errors.Wrapf(err, "rates for hotel %s", hotelID)
	}
	return NormalizeRates(raw, nights), nil
}

// ValidateQuery rejects an availability query before any network traffic.
func ValidateQuery(q domain.HotelQuery) error {
	if strings.TrimSpace(q.PlaceID) == "" {
		return domain.NewValidationError("place_id", "destination is required")
	}
	in, err := time.Parse(domain.DateLayout, q.CheckIn)
	if err != nil {
		return domain.NewValidationError("check_in", "expected YYYY-MM-DD")
	}
	out, err := time.Parse(domain.DateLayout, q.CheckOut)
	if err != nil {
		return domain.NewValidationError("check_out", "expected YYYY-MM-DD")
	}
	if !out.After(in) {
		return domain.NewValidationError("check_out", "must be after check-in")
	}
	if len(q.Rooms) == 0 {
		return domain.NewValidationError("rooms", "at least one room is required")
	}
	for _, r := range q.Rooms {
		if r.Adults < 1 {
			return domain.NewValidationError("rooms", "each room needs at least one adult")
		}
		for _, age := range r.Children {
			if age < 0 || age >= adultAge {
				return domain.NewValidationError("rooms", "child ages must be between 0 and 17")
			}
		}
	}
	return nil
}

package domain

// Hotel is the canonical, normalized result of an availability search.
type Hotel struct {
	ID             string       `json:"hotel_id"`
	Name           string       `json:"name"`
	StarRating     float64      `json:"star_rating"`
	LeadPrice      LeadPrice    `json:"lead_price"`
	AvailableRooms int          `json:"available_rooms"`
	Address        Address      `json:"address"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
	Images         []string     `json:"images,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Amenities      []string     `json:"amenities,omitempty"`
	ReviewScore    *float64     `json:"review_score,omitempty"`
	ReviewText     *string      `json:"review_text,omitempty"`
}

type LeadPrice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	PerNight float64 `json:"per_night"`
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is a destination suggestion returned by the places search.
type Place struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	LongName    *string      `json:"long_name,omitempty"`
	Type        string       `json:"type"`
	CountryCode *string      `json:"country_code,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

type PlacesResponse struct {
	Places     []Place     `json:"places"`
	Properties []Place     `json:"properties,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Suggestions flattens places and properties the way the search box lists them.
func (r PlacesResponse) Suggestions(limit int) []Place {
	out := make([]Place, 0, len(r.Places)+len(r.Properties))
	out = append(out, r.Places...)
	out = append(out, r.Properties...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type SearchSummary struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Nights   int    `json:"nights"`
	Currency string `json:"currency"`
}

type AvailabilityResponse struct {
	SearchID       string         `json:"search_id"`
	Hotels         []Hotel        `json:"hotels"`
	SearchCriteria *SearchSummary `json:"search_criteria,omitempty"`
	TotalResults   int            `json:"total_results"`
}

type RatesResponse struct {
	SearchID string `json:"search_id"`
	Hotel    *Hotel `json:"hotel,omitempty"`
	Rooms    []Room `json:"rooms"`
}

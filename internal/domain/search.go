package domain

import "time"

// DateLayout is the wire format of check-in/check-out dates.
const DateLayout = "2006-01-02"

type RoomOccupancy struct {
	Adults   int   `json:"adults"`
	Children []int `json:"children"`
}

type SortMode string

const (
	SortRecommended SortMode = "recommended"
	SortPriceAsc    SortMode = "price_asc"
	SortPriceDesc   SortMode = "price_desc"
	SortRatingDesc  SortMode = "rating_desc"
	SortStarsDesc   SortMode = "stars_desc"
)

// Filters narrow and order the deck. Zero values are neutral.
type Filters struct {
	MinStars       float64  `json:"min_stars,omitempty"`
	MinGuestRating float64  `json:"min_guest_rating,omitempty"`
	MaxPrice       float64  `json:"max_price,omitempty"`
	Sort           SortMode `json:"sort,omitempty"`
}

// HotelQuery is what the availability search needs from the criteria.
type HotelQuery struct {
	PlaceID  string
	CheckIn  string
	CheckOut string
	Rooms    []RoomOccupancy
	Currency string
	Page     int
}

// Credential is a bearer token with the instant it stops being served.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c Credential) ValidAt(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

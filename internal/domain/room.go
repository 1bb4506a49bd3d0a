package domain

// BoardType is the meal plan attached to a rate.
type BoardType string

const (
	BoardRoomOnly     BoardType = "room_only"
	BoardBreakfast    BoardType = "breakfast"
	BoardHalfBoard    BoardType = "half_board"
	BoardFullBoard    BoardType = "full_board"
	BoardAllInclusive BoardType = "all_inclusive"
)

func (b BoardType) Label() string {
	switch b {
	case BoardBreakfast:
		return "Breakfast"
	case BoardHalfBoard:
		return "Half Board"
	case BoardFullBoard:
		return "Full Board"
	case BoardAllInclusive:
		return "All Inclusive"
	default:
		return "Room Only"
	}
}

type Room struct {
	ID           string     `json:"room_id"`
	Name         string     `json:"room_name"`
	Description  *string    `json:"description,omitempty"`
	MaxOccupancy *Occupancy `json:"max_occupancy,omitempty"`
	BedTypes     []BedType  `json:"bed_types,omitempty"`
	Size         *RoomSize  `json:"room_size,omitempty"`
	Amenities    []string   `json:"amenities,omitempty"`
	Images       []string   `json:"images,omitempty"`
	Rates        []Rate     `json:"rates"`
}

type Occupancy struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Total    int `json:"total"`
}

type BedType struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

type RoomSize struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Rate is a bookable price point for a room. Rates are never mutated after normalization.
type Rate struct {
	ID             string        `json:"rate_id"`
	Name           string        `json:"rate_name"`
	BoardType      BoardType     `json:"board_type"`
	Pricing        Pricing       `json:"pricing"`
	Cancellation   *Cancellation `json:"cancellation_policy,omitempty"`
	Payment        *Payment      `json:"payment_options,omitempty"`
	Inclusions     []string      `json:"inclusions,omitempty"`
	AvailableRooms *int          `json:"available_rooms,omitempty"`
}

type Pricing struct {
	Total         float64    `json:"total"`
	Currency      string     `json:"currency"`
	PerNight      float64    `json:"per_night"`
	TaxesIncluded bool       `json:"taxes_included"`
	Breakdown     *Breakdown `json:"breakdown,omitempty"`
}

type Breakdown struct {
	BaseRate  float64 `json:"base_rate"`
	Taxes     float64 `json:"taxes"`
	Fees      float64 `json:"fees"`
	Discounts float64 `json:"discounts"`
}

type Cancellation struct {
	Refundable            bool    `json:"refundable"`
	FreeCancellationUntil *string `json:"free_cancellation_until,omitempty"`
	Description           *string `json:"description,omitempty"`
}

type Payment struct {
	PayNow          bool     `json:"pay_now"`
	PayLater        bool     `json:"pay_later"`
	DepositRequired bool     `json:"deposit_required"`
	DepositAmount   *float64 `json:"deposit_amount,omitempty"`
}

// RoomSelection is the single active room/rate choice for a hotel.
type RoomSelection struct {
	HotelID   string    `json:"hotel_id"`
	RoomID    string    `json:"room_id"`
	RateID    string    `json:"rate_id"`
	RoomName  string    `json:"room_name"`
	RateName  string    `json:"rate_name"`
	BoardType BoardType `json:"board_type"`
	Pricing   Pricing   `json:"pricing"`
}

package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Gateway is the authenticated transport to the upstream provider.
type Gateway interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// TokenStore backs the credential cache. Get reports false when no
// unexpired token is held.
type TokenStore interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Del(ctx context.Context) error
}

// ShortlistRepository keeps a shortlist per owner across sessions.
type ShortlistRepository interface {
	Load(ctx context.Context, owner string) ([]Hotel, error)
	Save(ctx context.Context, owner string, hotels []Hotel) error
}

// HotelSearcher is the local boundary the session layer calls into.
type HotelSearcher interface {
	SearchPlaces(ctx context.Context, text string) (PlacesResponse, error)
	SearchHotels(ctx context.Context, q HotelQuery) (AvailabilityResponse, error)
	GetHotelRates(ctx context.Context, searchID, hotelID string, nights int) (RatesResponse, error)
}

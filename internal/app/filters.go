package app

import (
	"sort"

	"swipestay/internal/domain"
)

// ApplyFilters drops hotels below the thresholds and orders the rest.
// The input slice is not modified; the recommended order is the provider's.
func ApplyFilters(hotels []domain.Hotel, f domain.Filters) []domain.Hotel {
	out := make([]domain.Hotel, 0, len(hotels))
	for _, h := range hotels {
		if f.MinStars > 0 && h.StarRating < f.MinStars {
			continue
		}
		if f.MinGuestRating > 0 && (h.ReviewScore == nil || *h.ReviewScore < f.MinGuestRating) {
			continue
		}
		if f.MaxPrice > 0 && h.LeadPrice.PerNight > f.MaxPrice {
			continue
		}
		out = append(out, h)
	}

	var less func(a, b domain.Hotel) bool
	switch f.Sort {
	case domain.SortPriceAsc:
		less = func(a, b domain.Hotel) bool { return a.LeadPrice.PerNight < b.LeadPrice.PerNight }
	case domain.SortPriceDesc:
		less = func(a, b domain.Hotel) bool { return a.LeadPrice.PerNight > b.LeadPrice.PerNight }
	case domain.SortRatingDesc:
		less = func(a, b domain.Hotel) bool { return score(a) > score(b) }
	case domain.SortStarsDesc:
		less = func(a, b domain.Hotel) bool { return a.StarRating > b.StarRating }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func score(h domain.Hotel) float64 {
	if h.ReviewScore == nil {
		return 0
	}
	return *h.ReviewScore
}

// ValidFilters reports whether the filter values are usable.
func ValidFilters(f domain.Filters) error {
	if f.MinStars < 0 || f.MinStars > 5 {
		return domain.NewValidationError("min_stars", "must be between 0 and 5")
	}
	if f.MinGuestRating < 0 || f.MinGuestRating > 10 {
		return domain.NewValidationError("min_guest_rating", "must be between 0 and 10")
	}
	if f.MaxPrice < 0 {
		return domain.NewValidationError("max_price", "must not be negative")
	}
	switch f.Sort {
	case "", domain.SortRecommended, domain.SortPriceAsc, domain.SortPriceDesc, domain.SortRatingDesc, domain.SortStarsDesc:
		return nil
	}
	return domain.NewValidationError("sort", "unknown sort mode")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/gnuflag"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"swipestay/internal/adapters/easygds"
	"swipestay/internal/adapters/observability"
	"swipestay/internal/app"
	"swipestay/internal/domain"
	"swipestay/internal/shared"
)

type options struct {
	query    string
	checkIn  string
	checkOut string
	adults   int
	rooms    int
	currency string
	rates    int
}

func parseFlags(args []string) (options, error) {
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	o := options{}
	f := gnuflag.NewFlagSet("search", gnuflag.ContinueOnError)
	f.StringVar(&o.query, "q", "Singapore", "destination text")
	f.StringVar(&o.checkIn, "checkin", tomorrow.Format(domain.DateLayout), "check-in date (YYYY-MM-DD)")
	f.StringVar(&o.checkOut, "checkout", tomorrow.AddDate(0, 0, 2).Format(domain.DateLayout), "check-out date (YYYY-MM-DD)")
	f.IntVar(&o.adults, "adults", 2, "adults per room")
	f.IntVar(&o.rooms, "rooms", 1, "number of rooms")
	f.StringVar(&o.currency, "currency", "USD", "currency code")
	f.IntVar(&o.rates, "rates", 3, "fetch rates for this many top hotels")
	if err := f.Parse(true, args); err != nil {
		return o, err
	}
	if o.rates < 0 {
		o.rates = 0
	}
	return o, nil
}

// topHotels keeps the first n hotels; a negative n keeps none.
func topHotels(hs []domain.Hotel, n int) []domain.Hotel {
	if n < 0 {
		n = 0
	}
	if len(hs) > n {
		return hs[:n]
	}
	return hs
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "swipestay-search")

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}

	env := easygds.Env{BaseURL: cfg.EasyGDSBase, Territory: cfg.Territory}
	auth := easygds.NewAuthenticator(env, easygds.Credentials{Email: cfg.EasyGDSEmail, Password: cfg.EasyGDSPassword},
		easygds.NewMemoryTokenStore(clock.WallClock), cfg.TokenTTL)
	client, err := easygds.New(env, auth, cfg.UpstreamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize easygds client")
	}
	svc := app.NewSearchService(client, cfg.LanguageCode, cfg.UpstreamTimeout)

	log.Info().
		Str("base", cfg.EasyGDSBase).
		Str("q", opts.query).
		Int("workers", cfg.RateWorkers).
		Msg("search starting")

	places, err := svc.SearchPlaces(ctx, opts.query)
	if err != nil {
		log.Fatal().Err(err).Msg("places search failed")
	}
	suggestions := places.Suggestions(1)
	if len(suggestions) == 0 {
		log.Fatal().Str("q", opts.query).Msg("no destination matched")
	}
	place := suggestions[0]
	log.Info().Str("place_id", place.ID).Str("name", place.Name).Msg("destination")

	rooms := make([]domain.RoomOccupancy, 0, opts.rooms)
	for i := 0; i < opts.rooms; i++ {
		rooms = append(rooms, domain.RoomOccupancy{Adults: opts.adults, Children: []int{}})
	}
	avail, err := svc.SearchHotels(ctx, domain.HotelQuery{
		PlaceID:  place.ID,
		CheckIn:  opts.checkIn,
		CheckOut: opts.checkOut,
		Rooms:    rooms,
		Currency: opts.currency,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("availability search failed")
	}
	log.Info().Str("search_id", avail.SearchID).Int("hotels", len(avail.Hotels)).Int("total", avail.TotalResults).Msg("availability")

	top := topHotels(avail.Hotels, opts.rates)
	nights := app.Nights(opts.checkIn, opts.checkOut)
	results := make([]domain.RatesResponse, len(top))

	sem := semaphore.NewWeighted(int64(max(cfg.RateWorkers, 1)))
	var wg sync.WaitGroup
	for i, h := range top {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(i int, hotelID string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := svc.GetHotelRates(ctx, avail.SearchID, hotelID, nights)
			if err != nil {
				log.Warn().Str("hotel_id", hotelID).Err(err).Msg("rates failed")
				return
			}
			results[i] = res
			log.Info().Str("hotel_id", hotelID).Int("rooms", len(res.Rooms)).Msg("rates ok")
		}(i, h.ID)
	}
	wg.Wait()

	out := struct {
		Place  domain.Place           `json:"place"`
		Hotels []domain.Hotel         `json:"hotels"`
		Rates  []domain.RatesResponse `json:"rates"`
	}{Place: place, Hotels: avail.Hotels, Rates: results}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Info().Msg("search completed")
}

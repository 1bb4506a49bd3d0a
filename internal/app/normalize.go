package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"swipestay/internal/domain"
)

/********** alias registries (single source of truth) **********/

var hotelAliases = map[string][]string{
	"id":           {"id", "hotel_id"},
	"name":         {"name", "hotel_name"},
	"stars":        {"star", "star_rating"},
	"total":        {"price_info.total_amount", "price_info.base_amount"},
	"currency":     {"currency_info.conversion", "currency_info.original"},
	"country":      {"location.country_code"},
	"image":        {"avatar.lg", "avatar.md", "avatar.sm"},
	"review_score": {"ratings.expedia.overall", "ratings.liteapi.overall"},
	"review_count": {"ratings.expedia.count"},
}

var roomAliases = map[string][]string{
	"id":          {"room_id", "id", "code"},
	"name":        {"room_name", "name", "room_type"},
	"description": {"description"},
	"occupancy":   {"max_occupancy", "occupancy"},
	"beds":        {"bed_types", "beds"},
	"amenities":   {"amenities", "facilities"},
	"images":      {"images", "photos"},
	"rates":       {"rates", "rate_plans"},
}

var rateAliases = map[string][]string{
	"id":             {"rate_id", "id", "rate_key"},
	"name":           {"rate_name", "name", "rate_plan_name"},
	"board":          {"board_type", "board", "meal_plan", "board_code"},
	"total":          {"pricing.total", "total_amount", "price_info.total_amount", "price_info.base_amount"},
	"currency":       {"pricing.currency", "currency", "currency_info.conversion", "currency_info.original"},
	"taxes_included": {"pricing.taxes_included", "taxes_included"},
	"breakdown":      {"pricing.breakdown", "breakdown"},
	"cancellation":   {"cancellation_policy", "cancellation"},
	"payment":        {"payment_options", "payment"},
	"available":      {"available_rooms", "allotment"},
}

var placeAliases = map[string][]string{
	"id":        {"id", "place_id"},
	"name":      {"name"},
	"long_name": {"long_name", "full_name"},
	"type":      {"type"},
	"country":   {"country_code", "location.country_code"},
}

const defaultCurrency = "USD"

/********** tiny helpers **********/

// firstString: first non-empty string (numbers are rendered) across the alias paths.
func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := r.Get(p)
		if !v.Exists() || v.Type == gjson.Null || v.IsObject() || v.IsArray() {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

// num reads a number that may arrive as JSON number or string ("8,0" included).
func num(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.String:
		s := strings.TrimSpace(strings.ReplaceAll(v.Str, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// firstNonZero mirrors "a || b || 0": zero and absent values fall through.
func firstNonZero(r gjson.Result, paths ...string) float64 {
	for _, p := range paths {
		if f, ok := num(r.Get(p)); ok && f != 0 && !math.IsNaN(f) {
			return f
		}
	}
	return 0
}

// firstPresent mirrors "a ?? b": only absent/null values fall through.
func firstPresent(r gjson.Result, paths ...string) (float64, bool) {
	for _, p := range paths {
		if f, ok := num(r.Get(p)); ok {
			return f, true
		}
	}
	return 0, false
}

func firstBool(r gjson.Result, paths ...string) bool {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v.Bool()
		}
	}
	return false
}

func firstObject(r gjson.Result, paths ...string) (gjson.Result, bool) {
	for _, p := range paths {
		if v := r.Get(p); v.IsObject() {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func firstArray(r gjson.Result, paths ...string) []gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// stringList accepts arrays of strings or of {url|src|name} objects.
func stringList(r gjson.Result, paths ...string) []string {
	var out []string
	for _, v := range firstArray(r, paths...) {
		switch {
		case v.Type == gjson.String:
			if s := strings.TrimSpace(v.Str); s != "" {
				out = append(out, s)
			}
		case v.IsObject():
			if s := firstString(v, "url", "src", "name"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptrF64(f float64) *float64 { return &f }

/********** derived values **********/

// PerNight divides only by a positive night count.
func PerNight(total float64, nights int) float64 {
	if nights > 0 {
		return total / float64(nights)
	}
	return total
}

// Nights is max(1, round(days between check-in and check-out)); unparsable dates count as 1.
func Nights(checkIn, checkOut string) int {
	in, err1 := parseDate(checkIn)
	out, err2 := parseDate(checkOut)
	if err1 != nil || err2 != nil {
		return 1
	}
	n := int(math.Round(out.Sub(in).Hours() / 24))
	if n < 1 {
		return 1
	}
	return n
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(domain.DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
	}
	return time.Parse(domain.DateLayout, s)
}

// parseAddress splits "street, city, postal, country". It is a best-effort
// heuristic: other layouts yield the wrong city or an empty one.
func parseAddress(streetAddress, countryCode string) domain.Address {
	var parts []string
	if strings.TrimSpace(streetAddress) != "" {
		for _, p := range strings.Split(streetAddress, ",") {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	at := func(i int) string {
		if i < 0 || i >= len(parts) {
			return ""
		}
		return parts[i]
	}

	country := countryCode
	if country == "" {
		country = at(len(parts) - 1)
	}
	city := at(1)
	if len(parts) >= 3 {
		city = at(len(parts) - 3)
	}
	return domain.Address{Street: at(0), City: city, Country: country}
}

func pointCoordinates(r gjson.Result) *domain.Coordinates {
	pt := r.Get("location.point.coordinates")
	if !pt.IsArray() {
		return nil
	}
	lon, ok1 := num(pt.Get("0"))
	lat, ok2 := num(pt.Get("1"))
	if !ok1 || !ok2 {
		return nil
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}
}

/********** hotel **********/

func NormalizeHotel(raw gjson.Result, nights int) domain.Hotel {
	total := firstNonZero(raw, hotelAliases["total"]...)
	currency := firstString(raw, hotelAliases["currency"]...)
	if currency == "" {
		currency = defaultCurrency
	}

	h := domain.Hotel{
		ID:         firstString(raw, hotelAliases["id"]...),
		Name:       firstString(raw, hotelAliases["name"]...),
		StarRating: firstNonZero(raw, hotelAliases["stars"]...),
		LeadPrice: domain.LeadPrice{
			Amount:   total,
			Currency: currency,
			PerNight: PerNight(total, nights),
		},
		Address:     parseAddress(raw.Get("street_address").String(), firstString(raw, hotelAliases["country"]...)),
		Coordinates: pointCoordinates(raw),
		Description: ptrStr(firstString(raw, "description")),
		Amenities:   stringList(raw, "amenities"),
	}
	if n, ok := firstPresent(raw, "available_rooms"); ok {
		h.AvailableRooms = int(n)
	}
	if img := firstString(raw, hotelAliases["image"]...); img != "" {
		h.Images = []string{img}
	}
	if score := firstNonZero(raw, hotelAliases["review_score"]...); score != 0 {
		h.ReviewScore = ptrF64(score)
	}
	if count := firstNonZero(raw, hotelAliases["review_count"]...); count != 0 {
		h.ReviewText = ptrStr(fmt.Sprintf("%s reviews", strconv.FormatFloat(count, 'f', -1, 64)))
	}
	return h
}

/********** rooms & rates **********/

func NormalizeRoom(raw gjson.Result, nights int) domain.Room {
	room := domain.Room{
		ID:          firstString(raw, roomAliases["id"]...),
		Name:        firstString(raw, roomAliases["name"]...),
		Description: ptrStr(firstString(raw, roomAliases["description"]...)),
		Amenities:   stringList(raw, roomAliases["amenities"]...),
		Images:      stringList(raw, roomAliases["images"]...),
		Rates:       []domain.Rate{},
	}

	if occ, ok := firstObject(raw, roomAliases["occupancy"]...); ok {
		o := &domain.Occupancy{
			Adults:   int(occ.Get("adults").Int()),
			Children: int(occ.Get("children").Int()),
			Total:    int(occ.Get("total").Int()),
		}
		if o.Total == 0 {
			o.Total = o.Adults + o.Children
		}
		room.MaxOccupancy = o
	}

	for _, b := range firstArray(raw, roomAliases["beds"]...) {
		bt := domain.BedType{Type: firstString(b, "type", "name"), Quantity: int(b.Get("quantity").Int())}
		if b.Type == gjson.String {
			bt.Type = strings.TrimSpace(b.Str)
		}
		if bt.Type == "" {
			continue
		}
		if bt.Quantity == 0 {
			bt.Quantity = 1
		}
		room.BedTypes = append(room.BedTypes, bt)
	}

	if size, ok := firstObject(raw, "room_size", "size"); ok {
		if v, ok := num(size.Get("value")); ok {
			unit := firstString(size, "unit")
			if unit == "" {
				unit = "sqm"
			}
			room.Size = &domain.RoomSize{Value: v, Unit: unit}
		}
	} else if v, ok := num(raw.Get("size_sqm")); ok {
		room.Size = &domain.RoomSize{Value: v, Unit: "sqm"}
	}

	for _, r := range firstArray(raw, roomAliases["rates"]...) {
		room.Rates = append(room.Rates, NormalizeRate(r, nights))
	}
	return room
}

func NormalizeRate(raw gjson.Result, nights int) domain.Rate {
	total := firstNonZero(raw, rateAliases["total"]...)
	currency := firstString(raw, rateAliases["currency"]...)
	if currency == "" {
		currency = defaultCurrency
	}
	board := ParseBoardType(firstString(raw, rateAliases["board"]...))

	rate := domain.Rate{
		ID:        firstString(raw, rateAliases["id"]...),
		Name:      firstString(raw, rateAliases["name"]...),
		BoardType: board,
		Pricing: domain.Pricing{
			Total:         total,
			Currency:      currency,
			PerNight:      PerNight(total, nights),
			TaxesIncluded: firstBool(raw, rateAliases["taxes_included"]...),
		},
		Inclusions: stringList(raw, "inclusions"),
	}
	if rate.Name == "" {
		rate.Name = board.Label()
	}

	if bd, ok := firstObject(raw, rateAliases["breakdown"]...); ok {
		rate.Pricing.Breakdown = &domain.Breakdown{
			BaseRate:  firstNonZero(bd, "base_rate", "base"),
			Taxes:     firstNonZero(bd, "taxes", "tax"),
			Fees:      firstNonZero(bd, "fees"),
			Discounts: firstNonZero(bd, "discounts", "discount"),
		}
	}

	if cp, ok := firstObject(raw, rateAliases["cancellation"]...); ok {
		c := &domain.Cancellation{
			Refundable:            firstBool(cp, "refundable"),
			FreeCancellationUntil: ptrStr(firstString(cp, "free_cancellation_until", "deadline")),
			Description:           ptrStr(firstString(cp, "description")),
		}
		if firstBool(raw, "restrictions.non_refundable", "non_refundable") {
			c.Refundable = false
		}
		rate.Cancellation = c
	} else if v := raw.Get("refundable"); v.Exists() {
		rate.Cancellation = &domain.Cancellation{Refundable: v.Bool() && !firstBool(raw, "non_refundable")}
	}

	if po, ok := firstObject(raw, rateAliases["payment"]...); ok {
		p := &domain.Payment{
			PayNow:          firstBool(po, "pay_now"),
			PayLater:        firstBool(po, "pay_later"),
			DepositRequired: firstBool(po, "deposit_required"),
		}
		if amt, ok := firstPresent(po, "deposit_amount"); ok {
			p.DepositAmount = ptrF64(amt)
		}
		rate.Payment = p
	}

	if n, ok := firstPresent(raw, rateAliases["available"]...); ok {
		avail := int(n)
		rate.AvailableRooms = &avail
	}
	return rate
}

// ParseBoardType maps provider spellings and codes onto the board enum.
// Unknown or absent values are room only.
func ParseBoardType(s string) domain.BoardType {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "breakfast", "bb", "bed_and_breakfast", "breakfast_included":
		return domain.BoardBreakfast
	case "half_board", "hb", "halfboard":
		return domain.BoardHalfBoard
	case "full_board", "fb", "fullboard":
		return domain.BoardFullBoard
	case "all_inclusive", "ai", "allinclusive":
		return domain.BoardAllInclusive
	default:
		return domain.BoardRoomOnly
	}
}

/********** places **********/

func NormalizePlace(raw gjson.Result) domain.Place {
	p := domain.Place{
		ID:          firstString(raw, placeAliases["id"]...),
		Name:        firstString(raw, placeAliases["name"]...),
		LongName:    ptrStr(firstString(raw, placeAliases["long_name"]...)),
		Type:        firstString(raw, placeAliases["type"]...),
		CountryCode: ptrStr(firstString(raw, placeAliases["country"]...)),
		Coordinates: pointCoordinates(raw),
	}
	if p.Coordinates == nil {
		if c, ok := firstObject(raw, "coordinates"); ok {
			lat, ok1 := num(c.Get("latitude"))
			lon, ok2 := num(c.Get("longitude"))
			if ok1 && ok2 {
				p.Coordinates = &domain.Coordinates{Latitude: lat, Longitude: lon}
			}
		}
	}
	return p
}

/********** whole responses **********/

func parseBody(body []byte, context string) (gjson.Result, bool) {
	if !gjson.ValidBytes(body) {
		log.Error().Str("context", context).Msg("upstream body is not valid JSON")
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(body), true
}

func NormalizePlaces(body []byte) domain.PlacesResponse {
	out := domain.PlacesResponse{Places: []domain.Place{}}
	doc, ok := parseBody(body, "NormalizePlaces")
	if !ok {
		return out
	}
	for _, p := range doc.Get("places").Array() {
		out.Places = append(out.Places, NormalizePlace(p))
	}
	for _, p := range doc.Get("properties").Array() {
		out.Properties = append(out.Properties, NormalizePlace(p))
	}
	if pg := doc.Get("pagination"); pg.IsObject() {
		out.Pagination = &domain.Pagination{
			CurrentPage: int(pg.Get("current_page").Int()),
			PerPage:     int(pg.Get("per_page").Int()),
			Total:       int(pg.Get("total").Int()),
			TotalPages:  int(pg.Get("total_pages").Int()),
		}
	}
	return out
}

func NormalizeAvailability(body []byte, nights int) domain.AvailabilityResponse {
	out := domain.AvailabilityResponse{Hotels: []domain.Hotel{}}
	doc, ok := parseBody(body, "NormalizeAvailability")
	if !ok {
		return out
	}
	out.SearchID = firstString(doc, "search_id")
	for _, h := range doc.Get("hotels").Array() {
		out.Hotels = append(out.Hotels, NormalizeHotel(h, nights))
	}
	out.TotalResults = int(firstNonZero(doc, "total"))
	if out.TotalResults == 0 {
		out.TotalResults = len(out.Hotels)
	}
	return out
}

func NormalizeRates(body []byte, nights int) domain.RatesResponse {
	out := domain.RatesResponse{Rooms: []domain.Room{}}
	doc, ok := parseBody(body, "NormalizeRates")
	if !ok {
		return out
	}
	out.SearchID = firstString(doc, "search_id")
	if h := doc.Get("hotel"); h.IsObject() {
		hotel := NormalizeHotel(h, nights)
		out.Hotel = &hotel
	}
	for _, r := range doc.Get("rooms").Array() {
		out.Rooms = append(out.Rooms, NormalizeRoom(r, nights))
	}
	return out
}

package app

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"tbo_gateway/internal/domain"
	"tbo_gateway/internal/shared"
)

/********** tiny helpers **********/

func rawJSON(v any, context string) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("context", context).Msg("marshal provider fragment failed")
		return nil
	}
	return b
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// objects collects every object nested in v at any depth of arrays.
func objects(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, it := range t {
			out = append(out, objects(it)...)
		}
		return out
	}
	return nil
}

// objectsWithKey walks maps and arrays and collects objects carrying key.
func objectsWithKey(v any, key string) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t[key]; ok {
			return []map[string]any{t}
		}
		var out []map[string]any
		for _, child := range t {
			out = append(out, objectsWithKey(child, key)...)
		}
		return out
	case []any:
		var out []map[string]any
		for _, it := range t {
			out = append(out, objectsWithKey(it, key)...)
		}
		return out
	}
	return nil
}

func rawList(in []map[string]any, context string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(in))
	for _, m := range in {
		if b := rawJSON(m, context); b != nil {
			out = append(out, b)
		}
	}
	return out
}

/********** fares **********/

func mapFare(m map[string]any) domain.Fare {
	return domain.Fare{
		Currency:             shared.Str(m, "Currency"),
		BaseFare:             shared.FloatOr(m, 0, "BaseFare"),
		Tax:                  shared.FloatOr(m, 0, "Tax"),
		YQTax:                shared.FloatOr(m, 0, "YQTax"),
		OtherCharges:         shared.FloatOr(m, 0, "OtherCharges"),
		Discount:             shared.FloatOr(m, 0, "Discount"),
		ServiceFee:           shared.FloatOr(m, 0, "ServiceFee"),
		AdditionalTxnFeeOfrd: shared.FloatOr(m, 0, "AdditionalTxnFeeOfrd"),
		AdditionalTxnFeePub:  shared.FloatOr(m, 0, "AdditionalTxnFeePub"),
		PublishedFare:        shared.FloatOr(m, 0, "PublishedFare"),
		OfferedFare:          shared.FloatOr(m, 0, "OfferedFare"),
	}
}

func mapBreakdown(list []any) []domain.FareBreakdown {
	out := make([]domain.FareBreakdown, 0, len(list))
	for _, it := range list {
		m := asMap(it)
		if m == nil {
			continue
		}
		out = append(out, domain.FareBreakdown{
			PassengerType:        shared.IntOr(m, 0, "PassengerType"),
			PassengerCount:       shared.IntOr(m, 0, "PassengerCount"),
			Currency:             shared.Str(m, "Currency"),
			BaseFare:             shared.FloatOr(m, 0, "BaseFare"),
			Tax:                  shared.FloatOr(m, 0, "Tax"),
			YQTax:                shared.FloatOr(m, 0, "YQTax"),
			AdditionalTxnFeeOfrd: shared.FloatOr(m, 0, "AdditionalTxnFeeOfrd"),
			AdditionalTxnFeePub:  shared.FloatOr(m, 0, "AdditionalTxnFeePub"),
		})
	}
	return out
}

/********** search **********/

func mapLeg(seg map[string]any) domain.FlightLeg {
	return domain.FlightLeg{
		AirlineCode:   shared.Str(seg, "Airline.AirlineCode"),
		AirlineName:   shared.Str(seg, "Airline.AirlineName"),
		FlightNumber:  shared.Str(seg, "Airline.FlightNumber"),
		FareClass:     shared.Str(seg, "Airline.FareClass"),
		OperatingLine: shared.Str(seg, "Airline.OperatingCarrier"),
		Origin:        shared.Str(seg, "Origin.Airport.AirportCode", "Origin.AirportCode"),
		Destination:   shared.Str(seg, "Destination.Airport.AirportCode", "Destination.AirportCode"),
		Departure:     shared.Str(seg, "Origin.DepTime", "DepTime"),
		Arrival:       shared.Str(seg, "Destination.ArrTime", "ArrTime"),
		DurationMin:   shared.IntOr(seg, 0, "Duration"),
		Baggage:       shared.Str(seg, "Baggage"),
		CabinBaggage:  shared.Str(seg, "CabinBaggage"),
		SeatsLeft:     shared.IntOr(seg, 0, "NoOfSeatAvailable"),
	}
}

// mapOption flattens one provider result. Segments is an array of
// journeys, each an array of legs; the summary fields describe the first
// journey.
func mapOption(r map[string]any, tripIndex int) domain.FlightOption {
	opt := domain.FlightOption{
		ResultIndex:  shared.Str(r, "ResultIndex"),
		TripIndex:    tripIndex,
		Source:       shared.IntOr(r, 0, "Source"),
		IsLCC:        shared.Bool(r, "IsLCC"),
		IsRefundable: shared.Bool(r, "IsRefundable"),
		AirlineCode:  shared.Str(r, "ValidatingAirline", "AirlineCode"),
		Fare:         mapFare(shared.Map(r, "Fare")),
	}
	var firstSegs []map[string]any
	for _, journey := range shared.Slice(r, "Segments") {
		segs := objects(journey)
		if len(segs) == 0 {
			continue
		}
		legs := make([]domain.FlightLeg, 0, len(segs))
		for _, seg := range segs {
			legs = append(legs, mapLeg(seg))
		}
		if firstSegs == nil {
			firstSegs = segs
		}
		opt.Legs = append(opt.Legs, legs)
	}
	if len(opt.Legs) == 0 {
		return opt
	}

	first := opt.Legs[0]
	head, tail := first[0], first[len(first)-1]
	opt.Origin, opt.Destination = head.Origin, tail.Destination
	opt.Departure, opt.Arrival = head.Departure, tail.Arrival
	opt.Stops = len(first) - 1
	if opt.AirlineCode == "" {
		opt.AirlineCode = head.AirlineCode
	}
	opt.AirlineName = head.AirlineName

	// AccumulatedDuration on the last leg already includes layovers
	if acc := shared.IntOr(firstSegs[len(firstSegs)-1], 0, "AccumulatedDuration"); acc > 0 {
		opt.DurationMin = acc
	} else {
		for i, seg := range firstSegs {
			opt.DurationMin += first[i].DurationMin + shared.IntOr(seg, 0, "GroundTime")
		}
	}
	return opt
}

func mapSearch(p domain.Payload) domain.SearchResult {
	res := domain.SearchResult{TraceID: shared.Str(p, "TraceId")}
	for gi, group := range shared.Slice(p, "Results") {
		items := objects(group)
		opts := make([]domain.FlightOption, 0, len(items))
		for _, r := range items {
			opts = append(opts, mapOption(r, gi))
		}
		res.Results = append(res.Results, opts)
	}
	if res.Results == nil {
		res.Results = [][]domain.FlightOption{}
	}
	return res
}

/********** fare rules / quote / ssr **********/

func mapFareRules(p domain.Payload) []domain.FareRule {
	list := objects(shared.Lookup(p, "FareRules"))
	out := make([]domain.FareRule, 0, len(list))
	for _, r := range list {
		out = append(out, domain.FareRule{
			Origin:      shared.Str(r, "Origin"),
			Destination: shared.Str(r, "Destination"),
			Airline:     shared.Str(r, "Airline"),
			FareBasis:   shared.Str(r, "FareBasisCode"),
			Detail:      strings.TrimSpace(shared.Str(r, "FareRuleDetail")),
			Restriction: shared.Str(r, "FareRestriction"),
		})
	}
	return out
}

// mapFareQuote keeps the quote's ResultIndex, which the provider may
// reissue; later Book/Ticket calls must use it.
func mapFareQuote(p domain.Payload, ref domain.ResultRef) domain.FareQuote {
	r := shared.Map(p, "Results")
	q := domain.FareQuote{
		TraceID:        shared.Str(p, "TraceId"),
		ResultIndex:    shared.Str(r, "ResultIndex"),
		IsLCC:          shared.Bool(r, "IsLCC"),
		IsPriceChanged: shared.Bool(p, "IsPriceChanged"),
		Source:         shared.IntOr(r, 0, "Source"),
		Fare:           mapFare(shared.Map(r, "Fare")),
		Breakdown:      mapBreakdown(shared.Slice(r, "FareBreakdown")),
		PassportRequired: shared.Bool(r, "IsPassportRequiredAtBook") ||
			shared.Bool(r, "IsPassportRequiredAtTicket"),
		Raw: rawJSON(r, "mapFareQuote"),
	}
	if q.TraceID == "" {
		q.TraceID = ref.TraceID
	}
	if q.ResultIndex == "" {
		q.ResultIndex = ref.ResultIndex
	}
	return q
}

func mapSSR(p domain.Payload, ref domain.ResultRef) domain.SSROptions {
	out := domain.SSROptions{TraceID: ref.TraceID, ResultIndex: ref.ResultIndex}
	out.Baggage = rawList(objects(shared.Lookup(p, "Baggage")), "mapSSR")

	meals := objects(shared.Lookup(p, "MealDynamic"))
	if len(meals) == 0 {
		meals = objects(shared.Lookup(p, "Meal"))
	}
	out.Meals = rawList(meals, "mapSSR")

	seats := objectsWithKey(shared.Lookup(p, "SeatDynamic"), "SeatNo")
	if len(seats) == 0 {
		seats = objects(shared.Lookup(p, "SeatPreference"))
	}
	out.Seats = rawList(seats, "mapSSR")
	return out
}

/********** book / ticket / details **********/

// mapBookingOutcome reads Book, Ticket and GetBookingDetails payloads. The
// first two nest their result in another "Response"; details carry the
// itinerary directly.
func mapBookingOutcome(p domain.Payload) domain.BookingOutcome {
	inner := shared.Map(p, "Response")
	if inner == nil {
		inner = p
	}
	itin := shared.Map(inner, "FlightItinerary")
	bookingID, _ := shared.Int64(inner, "BookingId", "FlightItinerary.BookingId")
	return domain.BookingOutcome{
		BookingID:      bookingID,
		PNR:            shared.Str(inner, "PNR", "FlightItinerary.PNR"),
		Status:         shared.IntOr(inner, 0, "Status", "FlightItinerary.Status"),
		TicketStatus:   shared.IntOr(inner, 0, "TicketStatus"),
		IsPriceChanged: shared.Bool(inner, "IsPriceChanged"),
		SSRDenied:      shared.Bool(inner, "SSRDenied"),
		Itinerary:      rawJSON(itin, "mapBookingOutcome"),
	}
}

// statusFromItinerary derives the ledger status of a flight booking from
// the provider's itinerary.
func statusFromItinerary(p domain.Payload) domain.BookingStatus {
	itin := shared.Map(p, "FlightItinerary")
	if itin == nil {
		itin = shared.Map(p, "Response.FlightItinerary")
	}
	if itin == nil {
		return ""
	}
	if shared.Bool(itin, "IsCancelled") || strings.Contains(strings.ToLower(shared.Str(itin, "BookingStatus")), "cancel") {
		return domain.StatusCancelled
	}
	for _, pax := range objects(shared.Lookup(itin, "Passenger")) {
		if shared.Str(pax, "Ticket.TicketNumber", "Ticket.TicketId") != "" {
			return domain.StatusTicketed
		}
	}
	return domain.StatusHeld
}

func mapChangeOutcome(p domain.Payload) domain.ChangeOutcome {
	first := objects(shared.Lookup(p, "TicketCRInfo"))
	out := domain.ChangeOutcome{Raw: rawJSON(p, "mapChangeOutcome")}
	if len(first) > 0 {
		out.ChangeRequestID, _ = shared.Int64(first[0], "ChangeRequestId")
		out.Status = shared.IntOr(first[0], 0, "ChangeRequestStatus")
	}
	return out
}

/********** hotels **********/

func mapCoord(m map[string]any, paths ...string) *float64 {
	if f, ok := shared.Float(m, paths...); ok && f != 0 {
		return &f
	}
	return nil
}

func mapHotelSearch(p domain.Payload) domain.HotelSearchResult {
	res := domain.HotelSearchResult{TraceID: shared.Str(p, "TraceId"), Hotels: []domain.HotelOption{}}
	for _, h := range objects(shared.Lookup(p, "HotelResults")) {
		res.Hotels = append(res.Hotels, domain.HotelOption{
			ResultIndex: shared.IntOr(h, 0, "ResultIndex"),
			HotelCode:   shared.Str(h, "HotelCode"),
			Name:        shared.Str(h, "HotelName"),
			Stars:       shared.IntOr(h, 0, "StarRating"),
			Address:     shared.Str(h, "HotelAddress"),
			Lat:         mapCoord(h, "Latitude"),
			Lon:         mapCoord(h, "Longitude"),
			Image:       shared.Str(h, "HotelPicture"),
			Currency:    shared.Str(h, "Price.CurrencyCode"),
			Price:       shared.FloatOr(h, 0, "Price.PublishedPriceRoundedOff", "Price.PublishedPrice"),
			OfferedFare: shared.FloatOr(h, 0, "Price.OfferedPriceRoundedOff", "Price.OfferedPrice"),
		})
	}
	return res
}

func mapHotelDetails(p domain.Payload) domain.HotelDetails {
	d := shared.Map(p, "HotelDetails")
	if d == nil {
		d = p
	}
	return domain.HotelDetails{
		HotelCode:   shared.Str(d, "HotelCode"),
		Name:        shared.Str(d, "HotelName"),
		Stars:       shared.IntOr(d, 0, "StarRating"),
		Description: shared.Str(d, "Description", "HotelDescription"),
		Address:     shared.Str(d, "Address", "HotelAddress"),
		Facilities:  shared.Strings(d, "HotelFacilities", "Facilities"),
		Images:      shared.Strings(d, "Images", "HotelPictures"),
		Lat:         mapCoord(d, "Latitude"),
		Lon:         mapCoord(d, "Longitude"),
	}
}

func mapHotelRooms(p domain.Payload) []domain.HotelRoom {
	list := objects(shared.Lookup(p, "HotelRoomsDetails"))
	out := make([]domain.HotelRoom, 0, len(list))
	for _, r := range list {
		out = append(out, domain.HotelRoom{
			RoomIndex:    shared.IntOr(r, 0, "RoomIndex"),
			RoomTypeCode: shared.Str(r, "RoomTypeCode"),
			RoomTypeName: shared.Str(r, "RoomTypeName"),
			RatePlanCode: shared.Str(r, "RatePlanCode"),
			Currency:     shared.Str(r, "Price.CurrencyCode"),
			Price:        shared.FloatOr(r, 0, "Price.OfferedPriceRoundedOff", "Price.OfferedPrice", "Price.PublishedPrice"),
			Refundable:   !shared.Bool(r, "NonRefundable") && shared.Str(r, "LastCancellationDate") != "",
			Raw:          rawJSON(r, "mapHotelRooms"),
		})
	}
	return out
}

func mapBlockOutcome(p domain.Payload) domain.HotelBlockOutcome {
	return domain.HotelBlockOutcome{
		IsPriceChanged:              shared.Bool(p, "IsPriceChanged"),
		IsCancellationPolicyChanged: shared.Bool(p, "IsCancellationPolicyChanged"),
		AvailabilityType:            shared.Str(p, "AvailabilityType"),
		Raw:                         rawJSON(p, "mapBlockOutcome"),
	}
}

func mapHotelBook(p domain.Payload) domain.HotelBookOutcome {
	id, _ := shared.Int64(p, "BookingId")
	return domain.HotelBookOutcome{
		BookingID:          id,
		ConfirmationNo:     shared.Str(p, "ConfirmationNo"),
		BookingRefNo:       shared.Str(p, "BookingRefNo"),
		HotelBookingStatus: shared.Str(p, "HotelBookingStatus"),
		IsPriceChanged:     shared.Bool(p, "IsPriceChanged"),
	}
}

// hotelStatus maps HotelBookingStatus text onto the ledger.
func hotelStatus(s string) domain.BookingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed", "vouchered":
		return domain.StatusConfirmed
	case "failed":
		return domain.StatusFailed
	case "cancelled":
		return domain.StatusCancelled
	}
	return domain.StatusHeld
}

// roomsTotal sums the selected rooms' offered price as echoed by the caller.
func roomsTotal(rooms []domain.HotelRoomSelection) (float64, string) {
	var total float64
	var currency string
	for _, sel := range rooms {
		var m map[string]any
		if json.Unmarshal(sel.Room, &m) != nil {
			continue
		}
		total += shared.FloatOr(m, 0, "Price.OfferedPriceRoundedOff", "Price.OfferedPrice", "Price.PublishedPrice")
		if currency == "" {
			currency = shared.Str(m, "Price.CurrencyCode")
		}
	}
	return total, currency
}

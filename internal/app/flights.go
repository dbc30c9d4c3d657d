package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tbo_gateway/internal/domain"
)

// PriceChangedError is returned by Book when the fresh quote moved and the
// caller did not accept the change. It carries the new quote.
type PriceChangedError struct {
	Quote domain.FareQuote
}

func (e *PriceChangedError) Error() string { return domain.ErrPriceChanged.Error() }
func (e *PriceChangedError) Unwrap() error { return domain.ErrPriceChanged }

// FlightBooking is what Book and Ticket hand back: the ledger row plus the
// provider's view of the booking.
type FlightBooking struct {
	Booking domain.Booking        `json:"booking"`
	Outcome domain.BookingOutcome `json:"outcome"`
}

type FlightService struct {
	air    domain.FlightProvider
	tokens domain.TokenSource
	ledger *ledger
	cache  domain.Cache
	ttl    time.Duration
}

func NewFlightService(air domain.FlightProvider, tokens domain.TokenSource, repo domain.BookingRepository, cache domain.Cache, ttl time.Duration) *FlightService {
	return &FlightService{
		air:    air,
		tokens: tokens,
		ledger: &ledger{repo: repo, cache: cache, now: time.Now},
		cache:  cache,
		ttl:    ttl,
	}
}

// Authenticate returns a provider token for endUserIP, reusing the cached
// one while it is valid.
func (s *FlightService) Authenticate(ctx context.Context, endUserIP string) (string, error) {
	if s.tokens == nil {
		return "", fmt.Errorf("%w: provider credentials not configured", domain.ErrUnauthorized)
	}
	return s.tokens.Token(ctx, endUserIP)
}

/********** search & pricing **********/

func validateSearch(q domain.FlightSearch) error {
	if q.Adults < 1 {
		return domain.InvalidInput("at least one adult is required")
	}
	if q.Children < 0 || q.Infants < 0 {
		return domain.InvalidInput("passenger counts must not be negative")
	}
	if q.Adults+q.Children > 9 {
		return domain.InvalidInput("at most 9 seated passengers")
	}
	if q.Infants > q.Adults {
		return domain.InvalidInput("infants cannot outnumber adults")
	}
	if len(q.Segments) == 0 {
		return domain.InvalidInput("at least one segment is required")
	}
	switch q.JourneyType {
	case domain.JourneyReturn, domain.JourneySpecialReturn:
		if len(q.Segments) != 2 {
			return domain.InvalidInput("return journeys need exactly two segments")
		}
	case domain.JourneyMultiCity:
		if len(q.Segments) < 2 {
			return domain.InvalidInput("multi-city journeys need at least two segments")
		}
	}
	for i, seg := range q.Segments {
		if len(strings.TrimSpace(seg.Origin)) != 3 || len(strings.TrimSpace(seg.Destination)) != 3 {
			return domain.InvalidInput("segment %d: origin and destination must be IATA codes", i)
		}
		if strings.EqualFold(seg.Origin, seg.Destination) {
			return domain.InvalidInput("segment %d: origin equals destination", i)
		}
		if seg.DepartureDate == "" {
			return domain.InvalidInput("segment %d: departureDate is required", i)
		}
	}
	return nil
}

// searchKey is bound to the token: a TraceId only works under the token
// that produced it.
func searchKey(token string, q domain.FlightSearch) string {
	b, _ := json.Marshal(q)
	h := sha1.New()
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write(b)
	sum := h.Sum(nil)
	return "search:" + hex.EncodeToString(sum[:])
}

func validateRef(ref domain.ResultRef) error {
	if ref.TraceID == "" || ref.ResultIndex == "" {
		return domain.InvalidInput("traceId and resultIndex are required")
	}
	return nil
}

func (s *FlightService) Search(ctx context.Context, sess domain.Session, q domain.FlightSearch) (domain.SearchResult, error) {
	if err := validateSearch(q); err != nil {
		return domain.SearchResult{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.SearchResult{}, err
	}
	key := searchKey(sess.TokenID, q)
	var cached domain.SearchResult
	if cacheGet(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	p, err := s.air.Search(ctx, sess, q)
	if err != nil {
		return domain.SearchResult{}, err
	}
	res := mapSearch(p)
	if res.TraceID == "" {
		return domain.SearchResult{}, fmt.Errorf("%w: search without TraceId", domain.ErrMalformedResponse)
	}

	empty := true
	for _, group := range res.Results {
		if len(group) > 0 {
			empty = false
			break
		}
	}
	if empty {
		res.Error = "no flights found"
		return res, nil
	}
	cacheSet(ctx, s.cache, key, res, s.ttl)
	return res, nil
}

func (s *FlightService) FareRules(ctx context.Context, sess domain.Session, ref domain.ResultRef) ([]domain.FareRule, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return nil, err
	}
	p, err := s.air.FareRule(ctx, sess, ref)
	if err != nil {
		return nil, err
	}
	return mapFareRules(p), nil
}

// FareQuote always asks the provider; the result is cached for readers
// that only display it.
func (s *FlightService) FareQuote(ctx context.Context, sess domain.Session, ref domain.ResultRef) (domain.FareQuote, error) {
	if err := validateRef(ref); err != nil {
		return domain.FareQuote{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.FareQuote{}, err
	}
	p, err := s.air.FareQuote(ctx, sess, ref)
	if err != nil {
		return domain.FareQuote{}, err
	}
	q := mapFareQuote(p, ref)
	cacheSet(ctx, s.cache, "quote:"+ref.TraceID+":"+ref.ResultIndex, q, s.ttl)
	return q, nil
}

func (s *FlightService) SSR(ctx context.Context, sess domain.Session, ref domain.ResultRef) (domain.SSROptions, error) {
	if err := validateRef(ref); err != nil {
		return domain.SSROptions{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.SSROptions{}, err
	}
	p, err := s.air.SSR(ctx, sess, ref)
	if err != nil {
		return domain.SSROptions{}, err
	}
	return mapSSR(p, ref), nil
}

/********** booking **********/

func validatePassengers(pax []domain.Passenger, q domain.FareQuote) error {
	if len(pax) == 0 {
		return domain.InvalidInput("at least one passenger is required")
	}
	leads, adults, infants := 0, 0, 0
	counts := map[int]int{}
	for i, p := range pax {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return domain.InvalidInput("passenger %d: firstName and lastName are required", i)
		}
		switch p.PaxType {
		case domain.PaxAdult:
			adults++
		case domain.PaxChild:
		case domain.PaxInfant:
			infants++
		default:
			return domain.InvalidInput("passenger %d: paxType must be 1, 2 or 3", i)
		}
		if p.PaxType != domain.PaxAdult && p.DateOfBirth == "" {
			return domain.InvalidInput("passenger %d: dateOfBirth is required for children and infants", i)
		}
		if p.IsLeadPax {
			leads++
			if p.PaxType != domain.PaxAdult {
				return domain.InvalidInput("passenger %d: lead passenger must be an adult", i)
			}
		}
		if q.PassportRequired && (p.PassportNo == "" || p.PassportExpiry == "") {
			return domain.InvalidInput("passenger %d: passport details are required for this fare", i)
		}
		counts[p.PaxType]++
	}
	if leads != 1 {
		return domain.InvalidInput("exactly one lead passenger is required")
	}
	if infants > adults {
		return domain.InvalidInput("infants cannot outnumber adults")
	}
	for _, b := range q.Breakdown {
		if b.PassengerCount > 0 && counts[b.PassengerType] != b.PassengerCount {
			return domain.InvalidInput("fare was quoted for %d passengers of type %d, got %d",
				b.PassengerCount, b.PassengerType, counts[b.PassengerType])
		}
	}
	return nil
}

// applyFares derives each passenger's fare from the quote breakdown.
// Breakdown amounts cover all passengers of a type; charges quoted only
// on the total are spread evenly.
func applyFares(pax []domain.Passenger, q domain.FareQuote) []domain.Passenger {
	out := make([]domain.Passenger, len(pax))
	n := float64(len(pax))
	for i, p := range pax {
		f := domain.Fare{
			Currency:     q.Fare.Currency,
			OtherCharges: q.Fare.OtherCharges / n,
			Discount:     q.Fare.Discount / n,
			ServiceFee:   q.Fare.ServiceFee / n,
		}
		for _, b := range q.Breakdown {
			if b.PassengerType != p.PaxType || b.PassengerCount <= 0 {
				continue
			}
			c := float64(b.PassengerCount)
			f.BaseFare = b.BaseFare / c
			f.Tax = b.Tax / c
			f.YQTax = b.YQTax / c
			f.AdditionalTxnFeeOfrd = b.AdditionalTxnFeeOfrd / c
			f.AdditionalTxnFeePub = b.AdditionalTxnFeePub / c
			if b.Currency != "" {
				f.Currency = b.Currency
			}
			break
		}
		f.PublishedFare = f.BaseFare + f.Tax + f.OtherCharges + f.ServiceFee + f.AdditionalTxnFeePub
		f.OfferedFare = f.PublishedFare - f.Discount
		p.Fare = f
		out[i] = p
	}
	return out
}

func leadName(pax []domain.Passenger) string {
	for _, p := range pax {
		if p.IsLeadPax {
			return strings.TrimSpace(p.FirstName + " " + p.LastName)
		}
	}
	return ""
}

// Book re-quotes the result, then tickets LCC fares in one call or holds a
// Non-LCC PNR and tickets it unless HoldOnly is set.
func (s *FlightService) Book(ctx context.Context, sess domain.Session, req domain.BookRequest) (FlightBooking, error) {
	if err := validateRef(req.ResultRef); err != nil {
		return FlightBooking{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return FlightBooking{}, err
	}

	p, err := s.air.FareQuote(ctx, sess, req.ResultRef)
	if err != nil {
		return FlightBooking{}, err
	}
	quote := mapFareQuote(p, req.ResultRef)
	if quote.IsPriceChanged && !req.AcceptPriceChange {
		return FlightBooking{}, &PriceChangedError{Quote: quote}
	}
	if err := validatePassengers(req.Passengers, quote); err != nil {
		return FlightBooking{}, err
	}
	pax := applyFares(req.Passengers, quote)
	ref := domain.ResultRef{TraceID: quote.TraceID, ResultIndex: quote.ResultIndex}

	b, err := s.ledger.create(ctx, domain.Booking{
		Kind:        domain.KindFlight,
		TraceID:     ref.TraceID,
		ResultIndex: ref.ResultIndex,
		IsLCC:       quote.IsLCC,
		Source:      quote.Source,
		Status:      domain.StatusQuoted,
		Amount:      quote.Fare.OfferedFare,
		Currency:    quote.Fare.Currency,
		LeadName:    leadName(pax),
	})
	if err != nil {
		return FlightBooking{}, err
	}
	l := log.With().Str("ref", b.Ref).Str("trace", ref.TraceID).Bool("lcc", quote.IsLCC).Logger()

	if quote.IsLCC {
		p, err := s.air.TicketLCC(ctx, sess, ref, pax)
		if err != nil {
			l.Error().Err(err).Msg("lcc ticket failed")
			if outcomeUnknown(err) {
				return FlightBooking{Booking: b}, s.ledger.unsettled(ctx, b, err)
			}
			return FlightBooking{Booking: b}, s.ledger.fail(ctx, b, err)
		}
		out := mapBookingOutcome(p)
		if err := checkOutcome(out, quote); err != nil {
			l.Warn().Err(err).Msg("lcc ticket not issued")
			return FlightBooking{Booking: b, Outcome: out}, s.ledger.fail(ctx, b, err)
		}
		b.BookingID, b.PNR, b.Status, b.Raw = out.BookingID, out.PNR, domain.StatusTicketed, out.Itinerary
		l.Info().Str("pnr", out.PNR).Msg("lcc ticketed")
		return FlightBooking{Booking: s.ledger.save(ctx, b), Outcome: out}, nil
	}

	p, err = s.air.Book(ctx, sess, ref, pax)
	if err != nil {
		l.Error().Err(err).Msg("book failed")
		if outcomeUnknown(err) {
			return FlightBooking{Booking: b}, s.ledger.unsettled(ctx, b, err)
		}
		return FlightBooking{Booking: b}, s.ledger.fail(ctx, b, err)
	}
	out := mapBookingOutcome(p)
	if err := checkOutcome(out, quote); err != nil {
		l.Warn().Err(err).Msg("pnr not held")
		return FlightBooking{Booking: b, Outcome: out}, s.ledger.fail(ctx, b, err)
	}
	b.BookingID, b.PNR, b.Status, b.Raw = out.BookingID, out.PNR, domain.StatusHeld, out.Itinerary
	b = s.ledger.save(ctx, b)
	l.Info().Str("pnr", out.PNR).Int64("booking_id", out.BookingID).Msg("pnr held")
	if req.HoldOnly {
		return FlightBooking{Booking: b, Outcome: out}, nil
	}
	return s.ticketHeld(ctx, sess, b)
}

// checkOutcome rejects Book and LCC Ticket replies that did not create a
// booking. A price change at this step means the provider booked nothing.
func checkOutcome(out domain.BookingOutcome, quote domain.FareQuote) error {
	if out.IsPriceChanged {
		return &PriceChangedError{Quote: quote}
	}
	if out.PNR == "" || out.BookingID == 0 {
		return fmt.Errorf("%w: booking reply without PNR or BookingId", domain.ErrMalformedResponse)
	}
	return nil
}

// Ticket issues tickets for a held Non-LCC booking from the ledger.
func (s *FlightService) Ticket(ctx context.Context, sess domain.Session, ref string) (FlightBooking, error) {
	b, err := s.ledger.repo.GetBooking(ctx, ref)
	if err != nil {
		return FlightBooking{}, err
	}
	if b.Kind != domain.KindFlight || b.IsLCC || b.Status != domain.StatusHeld {
		return FlightBooking{}, domain.InvalidInput("booking %s is not a held Non-LCC flight (status %s)", ref, b.Status)
	}
	sess, err = session(ctx, s.tokens, sess)
	if err != nil {
		return FlightBooking{}, err
	}
	return s.ticketHeld(ctx, sess, b)
}

// ticketHeld keeps the booking held when ticketing fails, so the PNR can
// be ticketed again or released.
func (s *FlightService) ticketHeld(ctx context.Context, sess domain.Session, b domain.Booking) (FlightBooking, error) {
	p, err := s.air.TicketNonLCC(ctx, sess, b.TraceID, b.PNR, b.BookingID)
	if err != nil {
		log.Error().Err(err).Str("ref", b.Ref).Str("pnr", b.PNR).Msg("ticket failed")
		b.Error = err.Error()
		return FlightBooking{Booking: s.ledger.save(ctx, b)}, err
	}
	out := mapBookingOutcome(p)
	if out.PNR == "" {
		out.PNR = b.PNR
	}
	if out.BookingID == 0 {
		out.BookingID = b.BookingID
	}
	b.Status, b.Error = domain.StatusTicketed, ""
	if out.Itinerary != nil {
		b.Raw = out.Itinerary
	}
	return FlightBooking{Booking: s.ledger.save(ctx, b), Outcome: out}, nil
}

func (s *FlightService) BookingDetails(ctx context.Context, sess domain.Session, q domain.BookingLookup) (domain.BookingOutcome, error) {
	set := 0
	if q.BookingID > 0 {
		set++
	}
	if q.PNR != "" {
		set++
		if q.FirstName == "" || q.LastName == "" {
			return domain.BookingOutcome{}, domain.InvalidInput("lookup by pnr needs the lead passenger's firstName and lastName")
		}
	}
	if q.TraceID != "" {
		set++
	}
	if set != 1 {
		return domain.BookingOutcome{}, domain.InvalidInput("exactly one of bookingId, pnr or traceId is required")
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.BookingOutcome{}, err
	}
	p, err := s.air.BookingDetails(ctx, sess, q)
	if err != nil {
		return domain.BookingOutcome{}, err
	}
	return mapBookingOutcome(p), nil
}

// ReleasePNR drops a held Non-LCC PNR.
func (s *FlightService) ReleasePNR(ctx context.Context, sess domain.Session, ref string) (domain.Booking, error) {
	b, err := s.ledger.repo.GetBooking(ctx, ref)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Kind != domain.KindFlight || b.Status != domain.StatusHeld || b.BookingID == 0 {
		return domain.Booking{}, domain.InvalidInput("booking %s is not a held flight (status %s)", ref, b.Status)
	}
	sess, err = session(ctx, s.tokens, sess)
	if err != nil {
		return domain.Booking{}, err
	}
	if _, err := s.air.ReleasePNR(ctx, sess, b.BookingID, b.Source); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.StatusReleased
	return s.ledger.save(ctx, b), nil
}

// Cancel files a change request for a ticketed booking. A full
// cancellation moves the ledger row to cancelled; other requests leave it.
func (s *FlightService) Cancel(ctx context.Context, sess domain.Session, c domain.Change) (domain.ChangeOutcome, error) {
	if c.Ref == "" {
		return domain.ChangeOutcome{}, domain.InvalidInput("ref is required")
	}
	if c.RequestType == 0 {
		c.RequestType = 1
	}
	if c.RequestType < 1 || c.RequestType > 3 {
		return domain.ChangeOutcome{}, domain.InvalidInput("requestType must be 1, 2 or 3")
	}
	if c.RequestType == 2 && len(c.Sectors) == 0 && len(c.TicketIDs) == 0 {
		return domain.ChangeOutcome{}, domain.InvalidInput("partial cancellation needs sectors or ticketIds")
	}
	if strings.TrimSpace(c.Remarks) == "" {
		return domain.ChangeOutcome{}, domain.InvalidInput("remarks are required")
	}

	b, err := s.ledger.repo.GetBooking(ctx, c.Ref)
	if err != nil {
		return domain.ChangeOutcome{}, err
	}
	if b.Kind != domain.KindFlight || b.Status != domain.StatusTicketed {
		return domain.ChangeOutcome{}, domain.InvalidInput("booking %s is not ticketed (status %s)", c.Ref, b.Status)
	}
	sess, err = session(ctx, s.tokens, sess)
	if err != nil {
		return domain.ChangeOutcome{}, err
	}
	p, err := s.air.SendChangeRequest(ctx, sess, b.BookingID, c)
	if err != nil {
		var perr *domain.ProviderError
		if errors.As(err, &perr) {
			log.Warn().Int("code", perr.Code).Str("ref", b.Ref).Msg("change request rejected")
		}
		return domain.ChangeOutcome{}, err
	}
	if c.RequestType == 1 {
		b.Status = domain.StatusCancelled
		s.ledger.save(ctx, b)
	}
	return mapChangeOutcome(p), nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tbo_gateway/internal/domain"
	"tbo_gateway/internal/shared"
)

type HotelService struct {
	hotels domain.HotelProvider
	tokens domain.TokenSource
	ledger *ledger
}

func NewHotelService(h domain.HotelProvider, tokens domain.TokenSource, repo domain.BookingRepository, cache domain.Cache) *HotelService {
	return &HotelService{
		hotels: h,
		tokens: tokens,
		ledger: &ledger{repo: repo, cache: cache, now: time.Now},
	}
}

func validateHotelSearch(q domain.HotelSearch) error {
	if q.CheckIn == "" || q.Nights < 1 {
		return domain.InvalidInput("checkIn and nights >= 1 are required")
	}
	if q.CityID == "" || q.CountryCode == "" {
		return domain.InvalidInput("cityId and countryCode are required")
	}
	if len(q.Rooms) == 0 {
		return domain.InvalidInput("at least one room is required")
	}
	for i, r := range q.Rooms {
		if r.Adults < 1 {
			return domain.InvalidInput("room %d: at least one adult is required", i)
		}
		if len(r.ChildAges) != r.Children {
			return domain.InvalidInput("room %d: childAges must list every child", i)
		}
	}
	if q.MinRating > 0 && q.MaxRating > 0 && q.MinRating > q.MaxRating {
		return domain.InvalidInput("minRating above maxRating")
	}
	return nil
}

func validateHotelRef(ref domain.HotelRef) error {
	if ref.TraceID == "" || ref.HotelCode == "" {
		return domain.InvalidInput("traceId and hotelCode are required")
	}
	return nil
}

// retryableSearch reports whether a hotel search failed because of the
// token rather than the query.
func retryableSearch(err error) bool {
	return errors.Is(err, domain.ErrTokenExpired) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrMalformedResponse)
}

// Search runs the hotel search. When the provider rejects the token or
// answers without a TraceId, it re-authenticates once and retries.
func (s *HotelService) Search(ctx context.Context, sess domain.Session, q domain.HotelSearch) (domain.HotelSearchResult, error) {
	if err := validateHotelSearch(q); err != nil {
		return domain.HotelSearchResult{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.HotelSearchResult{}, err
	}

	res, err := s.searchOnce(ctx, sess, q)
	if err == nil || !retryableSearch(err) || s.tokens == nil {
		return res, err
	}
	log.Warn().Err(err).Msg("hotel search: forcing re-authentication")
	tok, rerr := s.tokens.Refresh(ctx, sess.EndUserIP)
	if rerr != nil {
		return domain.HotelSearchResult{}, rerr
	}
	sess.TokenID = tok
	return s.searchOnce(ctx, sess, q)
}

func (s *HotelService) searchOnce(ctx context.Context, sess domain.Session, q domain.HotelSearch) (domain.HotelSearchResult, error) {
	p, err := s.hotels.SearchHotels(ctx, sess, q)
	if err != nil {
		return domain.HotelSearchResult{}, err
	}
	res := mapHotelSearch(p)
	if res.TraceID == "" {
		return domain.HotelSearchResult{}, fmt.Errorf("%w: hotel search without TraceId", domain.ErrMalformedResponse)
	}
	return res, nil
}

func (s *HotelService) Info(ctx context.Context, sess domain.Session, ref domain.HotelRef) (domain.HotelDetails, error) {
	if err := validateHotelRef(ref); err != nil {
		return domain.HotelDetails{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.HotelDetails{}, err
	}
	p, err := s.hotels.HotelInfo(ctx, sess, ref)
	if err != nil {
		return domain.HotelDetails{}, err
	}
	return mapHotelDetails(p), nil
}

func (s *HotelService) Rooms(ctx context.Context, sess domain.Session, ref domain.HotelRef) ([]domain.HotelRoom, error) {
	if err := validateHotelRef(ref); err != nil {
		return nil, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return nil, err
	}
	p, err := s.hotels.HotelRooms(ctx, sess, ref)
	if err != nil {
		return nil, err
	}
	return mapHotelRooms(p), nil
}

func validateBlock(r domain.HotelBlockRequest) error {
	if err := validateHotelRef(r.HotelRef); err != nil {
		return err
	}
	if r.HotelName == "" {
		return domain.InvalidInput("hotelName is required")
	}
	if len(r.Rooms) == 0 {
		return domain.InvalidInput("at least one room is required")
	}
	leads := 0
	for i, room := range r.Rooms {
		if len(room.Room) == 0 {
			return domain.InvalidInput("room %d: room details from the room list are required", i)
		}
		if len(room.Guests) == 0 {
			return domain.InvalidInput("room %d: at least one guest is required", i)
		}
		for _, g := range room.Guests {
			if g.FirstName == "" || g.LastName == "" {
				return domain.InvalidInput("room %d: guest firstName and lastName are required", i)
			}
			if g.LeadPax {
				leads++
			}
		}
	}
	if leads == 0 {
		return domain.InvalidInput("a lead guest is required")
	}
	return nil
}

func (s *HotelService) Block(ctx context.Context, sess domain.Session, r domain.HotelBlockRequest) (domain.HotelBlockOutcome, error) {
	if err := validateBlock(r); err != nil {
		return domain.HotelBlockOutcome{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return domain.HotelBlockOutcome{}, err
	}
	p, err := s.hotels.BlockRoom(ctx, sess, r)
	if err != nil {
		return domain.HotelBlockOutcome{}, err
	}
	return mapBlockOutcome(p), nil
}

// HotelBooking is the ledger row plus the provider's confirmation.
type HotelBooking struct {
	Booking domain.Booking          `json:"booking"`
	Outcome domain.HotelBookOutcome `json:"outcome"`
}

func hotelLead(r domain.HotelBlockRequest) string {
	for _, room := range r.Rooms {
		for _, g := range room.Guests {
			if g.LeadPax {
				return g.FirstName + " " + g.LastName
			}
		}
	}
	return ""
}

func (s *HotelService) Book(ctx context.Context, sess domain.Session, r domain.HotelBlockRequest) (HotelBooking, error) {
	if err := validateBlock(r); err != nil {
		return HotelBooking{}, err
	}
	sess, err := session(ctx, s.tokens, sess)
	if err != nil {
		return HotelBooking{}, err
	}

	amount, currency := roomsTotal(r.Rooms)
	b, err := s.ledger.create(ctx, domain.Booking{
		Kind:        domain.KindHotel,
		TraceID:     r.TraceID,
		ResultIndex: fmt.Sprint(r.ResultIndex),
		Status:      domain.StatusQuoted,
		Amount:      amount,
		Currency:    currency,
		LeadName:    hotelLead(r),
	})
	if err != nil {
		return HotelBooking{}, err
	}

	p, err := s.hotels.BookHotel(ctx, sess, r)
	if err != nil {
		log.Error().Err(err).Str("ref", b.Ref).Str("hotel", r.HotelCode).Msg("hotel book failed")
		return HotelBooking{Booking: b}, s.ledger.fail(ctx, b, err)
	}
	out := mapHotelBook(p)
	b.BookingID = out.BookingID
	b.PNR = shared.Str(p, "ConfirmationNo", "BookingRefNo")
	b.Status = hotelStatus(out.HotelBookingStatus)
	b.Raw = rawJSON(p, "hotel book")
	return HotelBooking{Booking: s.ledger.save(ctx, b), Outcome: out}, nil
}

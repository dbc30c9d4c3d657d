package domain

import "context"

// Session identifies the caller toward the provider. TokenID is optional;
// when empty the process-wide cached token is used.
type Session struct {
	TokenID   string
	EndUserIP string
}

// Payloads returned by the provider adapters are the decoded inner
// envelope (Response, <Op>Result) after error unwrapping.
type Payload = map[string]any

type FlightProvider interface {
	Search(ctx context.Context, s Session, q FlightSearch) (Payload, error)
	FareRule(ctx context.Context, s Session, ref ResultRef) (Payload, error)
	FareQuote(ctx context.Context, s Session, ref ResultRef) (Payload, error)
	SSR(ctx context.Context, s Session, ref ResultRef) (Payload, error)
	Book(ctx context.Context, s Session, ref ResultRef, pax []Passenger) (Payload, error)
	TicketLCC(ctx context.Context, s Session, ref ResultRef, pax []Passenger) (Payload, error)
	TicketNonLCC(ctx context.Context, s Session, traceID, pnr string, bookingID int64) (Payload, error)
	BookingDetails(ctx context.Context, s Session, q BookingLookup) (Payload, error)
	ReleasePNR(ctx context.Context, s Session, bookingID int64, source int) (Payload, error)
	SendChangeRequest(ctx context.Context, s Session, bookingID int64, c Change) (Payload, error)
}

type HotelProvider interface {
	SearchHotels(ctx context.Context, s Session, q HotelSearch) (Payload, error)
	HotelInfo(ctx context.Context, s Session, ref HotelRef) (Payload, error)
	HotelRooms(ctx context.Context, s Session, ref HotelRef) (Payload, error)
	BlockRoom(ctx context.Context, s Session, req HotelBlockRequest) (Payload, error)
	BookHotel(ctx context.Context, s Session, req HotelBlockRequest) (Payload, error)
}

// TokenSource hands out provider tokens.
type TokenSource interface {
	// Token returns the cached token, authenticating when absent or expired.
	Token(ctx context.Context, endUserIP string) (string, error)
	// Refresh discards the cached token and authenticates again.
	Refresh(ctx context.Context, endUserIP string) (string, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) error
	UpdateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, ref string) (Booking, error)
	ListBookings(ctx context.Context, q BookingsQuery) ([]Booking, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

package tektravels

import (
	"context"
	"time"

	"tbo_gateway/internal/domain"
)

var _ domain.FlightProvider = (*Client)(nil)

// Flight endpoints. Every payload is the "Response" object of the reply.

func (c *Client) air(name string, timeout time.Duration, retry bool) call {
	return call{
		name:     "air." + name,
		url:      c.ep.Air + "/" + name,
		envelope: "Response",
		timeout:  timeout,
		retry:    retry,
	}
}

func (c *Client) Search(ctx context.Context, s domain.Session, q domain.FlightSearch) (domain.Payload, error) {
	req, err := toSearchRequest(s, q)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, c.air("Search", searchTimeout, true), req)
}

func (c *Client) FareRule(ctx context.Context, s domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	return c.do(ctx, c.air("FareRule", defaultTimeout, true), resultRequest{
		EndUserIp: s.EndUserIP, TokenId: s.TokenID, TraceId: ref.TraceID, ResultIndex: ref.ResultIndex,
	})
}

func (c *Client) FareQuote(ctx context.Context, s domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	return c.do(ctx, c.air("FareQuote", defaultTimeout, true), resultRequest{
		EndUserIp: s.EndUserIP, TokenId: s.TokenID, TraceId: ref.TraceID, ResultIndex: ref.ResultIndex,
	})
}

func (c *Client) SSR(ctx context.Context, s domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	return c.do(ctx, c.air("SSR", defaultTimeout, true), resultRequest{
		EndUserIp: s.EndUserIP, TokenId: s.TokenID, TraceId: ref.TraceID, ResultIndex: ref.ResultIndex,
	})
}

// Book holds a Non-LCC itinerary and returns the PNR and BookingId.
func (c *Client) Book(ctx context.Context, s domain.Session, ref domain.ResultRef, pax []domain.Passenger) (domain.Payload, error) {
	return c.do(ctx, c.air("Book", bookTimeout, false), bookRequest{
		EndUserIp:   s.EndUserIP,
		TokenId:     s.TokenID,
		TraceId:     ref.TraceID,
		ResultIndex: ref.ResultIndex,
		Passengers:  toPassengers(pax),
	})
}

// TicketLCC books and tickets a low-cost carrier result in one call.
func (c *Client) TicketLCC(ctx context.Context, s domain.Session, ref domain.ResultRef, pax []domain.Passenger) (domain.Payload, error) {
	return c.do(ctx, c.air("Ticket", bookTimeout, false), bookRequest{
		EndUserIp:   s.EndUserIP,
		TokenId:     s.TokenID,
		TraceId:     ref.TraceID,
		ResultIndex: ref.ResultIndex,
		Passengers:  toPassengers(pax),
	})
}

// TicketNonLCC tickets a PNR created earlier by Book.
func (c *Client) TicketNonLCC(ctx context.Context, s domain.Session, traceID, pnr string, bookingID int64) (domain.Payload, error) {
	return c.do(ctx, c.air("Ticket", bookTimeout, false), ticketNonLCCRequest{
		EndUserIp: s.EndUserIP,
		TokenId:   s.TokenID,
		TraceId:   traceID,
		PNR:       pnr,
		BookingId: bookingID,
	})
}

func (c *Client) BookingDetails(ctx context.Context, s domain.Session, q domain.BookingLookup) (domain.Payload, error) {
	return c.do(ctx, c.air("GetBookingDetails", defaultTimeout, true), bookingDetailsRequest{
		EndUserIp: s.EndUserIP,
		TokenId:   s.TokenID,
		BookingId: q.BookingID,
		PNR:       q.PNR,
		FirstName: q.FirstName,
		LastName:  q.LastName,
		TraceId:   q.TraceID,
	})
}

func (c *Client) ReleasePNR(ctx context.Context, s domain.Session, bookingID int64, source int) (domain.Payload, error) {
	return c.do(ctx, c.air("ReleasePNRRequest", defaultTimeout, false), releasePNRRequest{
		EndUserIp: s.EndUserIP,
		TokenId:   s.TokenID,
		BookingId: bookingID,
		Source:    source,
	})
}

func (c *Client) SendChangeRequest(ctx context.Context, s domain.Session, bookingID int64, ch domain.Change) (domain.Payload, error) {
	return c.do(ctx, c.air("SendChangeRequest", defaultTimeout, false), changeRequestWire{
		EndUserIp:        s.EndUserIP,
		TokenId:          s.TokenID,
		BookingId:        bookingID,
		RequestType:      ch.RequestType,
		CancellationType: ch.CancellationType,
		Sectors:          toSectors(ch.Sectors),
		TicketId:         ch.TicketIDs,
		Remarks:          ch.Remarks,
	})
}

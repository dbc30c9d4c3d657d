package tektravels

import (
	"context"

	"tbo_gateway/internal/domain"
)

var _ domain.HotelProvider = (*Client)(nil)

// Hotel endpoints wrap their payload in "<Op>Result".

func (c *Client) hotel(name, envelope string, retry bool) call {
	return call{
		name:     "hotel." + name,
		url:      c.ep.Hotel + "/" + name,
		envelope: envelope,
		timeout:  searchTimeout,
		retry:    retry,
	}
}

func (c *Client) SearchHotels(ctx context.Context, s domain.Session, q domain.HotelSearch) (domain.Payload, error) {
	req, err := toHotelSearch(s, q)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, c.hotel("GetHotelResult", "HotelSearchResult", true), req)
}

func (c *Client) HotelInfo(ctx context.Context, s domain.Session, ref domain.HotelRef) (domain.Payload, error) {
	return c.do(ctx, c.hotel("GetHotelInfo", "HotelInfoResult", true), hotelRefRequest{
		ResultIndex: ref.ResultIndex, HotelCode: ref.HotelCode,
		EndUserIp: s.EndUserIP, TokenId: s.TokenID, TraceId: ref.TraceID,
	})
}

func (c *Client) HotelRooms(ctx context.Context, s domain.Session, ref domain.HotelRef) (domain.Payload, error) {
	return c.do(ctx, c.hotel("GetHotelRoom", "GetHotelRoomResult", true), hotelRefRequest{
		ResultIndex: ref.ResultIndex, HotelCode: ref.HotelCode,
		EndUserIp: s.EndUserIP, TokenId: s.TokenID, TraceId: ref.TraceID,
	})
}

func (c *Client) BlockRoom(ctx context.Context, s domain.Session, r domain.HotelBlockRequest) (domain.Payload, error) {
	req, err := toBlockRoom(s, r)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, c.hotel("BlockRoom", "BlockRoomResult", false), req)
}

// BookHotel takes the same shape as BlockRoom.
func (c *Client) BookHotel(ctx context.Context, s domain.Session, r domain.HotelBlockRequest) (domain.Payload, error) {
	req, err := toBlockRoom(s, r)
	if err != nil {
		return nil, err
	}
	cl := c.hotel("Book", "BookResult", false)
	cl.timeout = bookTimeout
	return c.do(ctx, cl, req)
}

package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbo_gateway/internal/app"
	"tbo_gateway/internal/domain"
)

type searchReply = struct {
	p   domain.Payload
	err error
}

func hotelQuery() domain.HotelSearch {
	return domain.HotelSearch{
		CheckIn: "2026-12-24", Nights: 2, CountryCode: "IN", CityID: "130443",
		Rooms: []domain.RoomGuests{{Adults: 2}},
	}
}

const hotelResults = `{"TraceId":"ht-2","HotelResults":[{"ResultIndex":9,"HotelCode":"H1","HotelName":"Sea View","StarRating":4,
  "Price":{"CurrencyCode":"INR","PublishedPrice":8000,"OfferedPrice":7600}}]}`

func TestHotelSearch_RetriesOnceWithFreshToken(t *testing.T) {
	h := &fakeHotels{searches: []searchReply{
		{err: &domain.ProviderError{Code: 6, Message: "Invalid Token"}},
		{p: payload(hotelResults)},
	}}
	tokens := &fakeTokens{token: "stale", refreshed: "fresh"}
	svc := app.NewHotelService(h, tokens, &fakeRepo{}, nil)

	res, err := svc.Search(context.Background(), anon, hotelQuery())
	require.NoError(t, err)
	assert.Equal(t, "ht-2", res.TraceID)
	require.Len(t, res.Hotels, 1)
	assert.Equal(t, 9, res.Hotels[0].ResultIndex)
	assert.InDelta(t, 7600, res.Hotels[0].OfferedFare, 0.001)
	assert.Equal(t, []string{"stale", "fresh"}, h.searchTokens)
	assert.Equal(t, 1, tokens.refreshes)
}

func TestHotelSearch_MissingTraceIDRetriesOnlyOnce(t *testing.T) {
	h := &fakeHotels{searches: []searchReply{{p: payload(`{"HotelResults":[]}`)}}}
	tokens := &fakeTokens{token: "stale", refreshed: "fresh"}
	svc := app.NewHotelService(h, tokens, &fakeRepo{}, nil)

	_, err := svc.Search(context.Background(), anon, hotelQuery())
	assert.True(t, errors.Is(err, domain.ErrMalformedResponse), "got %v", err)
	assert.Len(t, h.searchTokens, 2)
	assert.Equal(t, 1, tokens.refreshes)
}

func TestHotelSearch_QueryErrorsAreNotRetried(t *testing.T) {
	h := &fakeHotels{searches: []searchReply{{err: &domain.ProviderError{Code: 3, Message: "Invalid CityId"}}}}
	tokens := &fakeTokens{token: "tok"}
	svc := app.NewHotelService(h, tokens, &fakeRepo{}, nil)

	_, err := svc.Search(context.Background(), anon, hotelQuery())
	require.EqualError(t, err, "3: Invalid CityId")
	assert.Len(t, h.searchTokens, 1)
	assert.Equal(t, 0, tokens.refreshes)

	bad := hotelQuery()
	bad.Rooms[0].Children = 1
	_, err = svc.Search(context.Background(), anon, bad)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func blockRequest() domain.HotelBlockRequest {
	return domain.HotelBlockRequest{
		HotelRef:  domain.HotelRef{TraceID: "ht-2", ResultIndex: 9, HotelCode: "H1"},
		HotelName: "Sea View",
		Rooms: []domain.HotelRoomSelection{
			{
				Room:   json.RawMessage(`{"RoomIndex":1,"Price":{"CurrencyCode":"INR","OfferedPrice":3800}}`),
				Guests: []domain.HotelGuest{{Title: "Mr", FirstName: "Ravi", LastName: "Kumar", PaxType: 1, LeadPax: true}},
			},
			{
				Room:   json.RawMessage(`{"RoomIndex":2,"Price":{"CurrencyCode":"INR","OfferedPrice":4200}}`),
				Guests: []domain.HotelGuest{{Title: "Mrs", FirstName: "Asha", LastName: "Kumar", PaxType: 1}},
			},
		},
	}
}

func TestHotelBook_RecordsLedger(t *testing.T) {
	h := &fakeHotels{book: payload(`{"BookingId":4411,"ConfirmationNo":"CNF77","BookingRefNo":"R1","HotelBookingStatus":"Confirmed"}`)}
	repo := &fakeRepo{}
	svc := app.NewHotelService(h, &fakeTokens{token: "tok"}, repo, nil)

	out, err := svc.Book(context.Background(), anon, blockRequest())
	require.NoError(t, err)
	assert.Equal(t, "CNF77", out.Outcome.ConfirmationNo)

	b := repo.only()
	assert.Equal(t, domain.KindHotel, b.Kind)
	assert.Equal(t, domain.StatusConfirmed, b.Status)
	assert.Equal(t, int64(4411), b.BookingID)
	assert.Equal(t, "CNF77", b.PNR)
	assert.InDelta(t, 8000, b.Amount, 0.001)
	assert.Equal(t, "INR", b.Currency)
	assert.Equal(t, "Ravi Kumar", b.LeadName)
	assert.Equal(t, "9", b.ResultIndex)
}

func TestHotelBook_FailureAndValidation(t *testing.T) {
	h := &fakeHotels{bookErr: &domain.ProviderError{Code: 2, Message: "Room no longer available"}}
	repo := &fakeRepo{}
	svc := app.NewHotelService(h, &fakeTokens{token: "tok"}, repo, nil)

	_, err := svc.Book(context.Background(), anon, blockRequest())
	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, repo.only().Status)

	noLead := blockRequest()
	noLead.Rooms[0].Guests[0].LeadPax = false
	_, err = svc.Block(context.Background(), anon, noLead)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestHotelRooms_Mapped(t *testing.T) {
	h := &fakeHotels{rooms: payload(`{"TraceId":"ht-2","HotelRoomsDetails":[
	  {"RoomIndex":1,"RoomTypeCode":"DBL","RoomTypeName":"Deluxe","RatePlanCode":"RP1","LastCancellationDate":"2026-12-20T00:00:00",
	   "Price":{"CurrencyCode":"INR","OfferedPrice":3800}}]}`)}
	svc := app.NewHotelService(h, &fakeTokens{token: "tok"}, &fakeRepo{}, nil)

	rooms, err := svc.Rooms(context.Background(), anon, domain.HotelRef{TraceID: "ht-2", ResultIndex: 9, HotelCode: "H1"})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "DBL", rooms[0].RoomTypeCode)
	assert.True(t, rooms[0].Refundable)
	assert.InDelta(t, 3800, rooms[0].Price, 0.001)
	assert.NotEmpty(t, rooms[0].Raw)

	_, err = svc.Rooms(context.Background(), anon, domain.HotelRef{TraceID: "ht-2"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "tbo_gateway/internal/adapters/http_server"
	"tbo_gateway/internal/app"
	"tbo_gateway/internal/domain"
)

// ---- fakes ----

type stubAir struct {
	quote    domain.Payload
	quoteErr error
	seen     []domain.Session
}

func (s *stubAir) Search(ctx context.Context, ss domain.Session, q domain.FlightSearch) (domain.Payload, error) {
	s.seen = append(s.seen, ss)
	return domain.Payload{"TraceId": "tr-1", "Results": []any{[]any{
		map[string]any{"ResultIndex": "OB1", "Fare": map[string]any{"OfferedFare": 3100.0}},
	}}}, nil
}
func (s *stubAir) FareRule(ctx context.Context, ss domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) FareQuote(ctx context.Context, ss domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	s.seen = append(s.seen, ss)
	return s.quote, s.quoteErr
}
func (s *stubAir) SSR(ctx context.Context, ss domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) Book(ctx context.Context, ss domain.Session, ref domain.ResultRef, pax []domain.Passenger) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) TicketLCC(ctx context.Context, ss domain.Session, ref domain.ResultRef, pax []domain.Passenger) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) TicketNonLCC(ctx context.Context, ss domain.Session, traceID, pnr string, id int64) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) BookingDetails(ctx context.Context, ss domain.Session, q domain.BookingLookup) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) ReleasePNR(ctx context.Context, ss domain.Session, id int64, source int) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (s *stubAir) SendChangeRequest(ctx context.Context, ss domain.Session, id int64, c domain.Change) (domain.Payload, error) {
	return domain.Payload{}, nil
}

type stubHotels struct{}

func (stubHotels) SearchHotels(ctx context.Context, s domain.Session, q domain.HotelSearch) (domain.Payload, error) {
	return domain.Payload{"TraceId": "ht-1", "HotelResults": []any{}}, nil
}
func (stubHotels) HotelInfo(ctx context.Context, s domain.Session, ref domain.HotelRef) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (stubHotels) HotelRooms(ctx context.Context, s domain.Session, ref domain.HotelRef) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (stubHotels) BlockRoom(ctx context.Context, s domain.Session, r domain.HotelBlockRequest) (domain.Payload, error) {
	return domain.Payload{}, nil
}
func (stubHotels) BookHotel(ctx context.Context, s domain.Session, r domain.HotelBlockRequest) (domain.Payload, error) {
	return domain.Payload{}, nil
}

type stubTokens struct{}

func (stubTokens) Token(ctx context.Context, ip string) (string, error)   { return "cached", nil }
func (stubTokens) Refresh(ctx context.Context, ip string) (string, error) { return "cached", nil }

type stubRepo struct{ rows map[string]domain.Booking }

func (r *stubRepo) CreateBooking(ctx context.Context, b domain.Booking) error { return nil }
func (r *stubRepo) UpdateBooking(ctx context.Context, b domain.Booking) error { return nil }
func (r *stubRepo) GetBooking(ctx context.Context, ref string) (domain.Booking, error) {
	b, ok := r.rows[ref]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}
func (r *stubRepo) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	return nil, nil
}

// ---- helpers ----

type reply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newRouter(air *stubAir, tokens domain.TokenSource) http.Handler {
	repo := &stubRepo{rows: map[string]domain.Booking{
		"r1": {Ref: "r1", Kind: domain.KindFlight, Status: domain.StatusHeld, PNR: "PNR9"},
	}}
	s := httpserver.New(5 * time.Second)
	s.MountHandlers(&httpserver.Handlers{
		Flights:   app.NewFlightService(air, tokens, repo, nil, 0),
		Hotels:    app.NewHotelService(stubHotels{}, tokens, repo, nil),
		Q:         app.NewQueryService(repo, nil, 0),
		EndUserIP: "127.0.0.1",
	})
	return s.Mux()
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) (*httptest.ResponseRecorder, reply) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out reply
	if rec.Code != http.StatusNotModified && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

const searchBody = `{"adults":1,"segments":[{"origin":"DEL","destination":"BOM","departureDate":"2026-11-02"}]}`

// ---- tests ----

func TestHealthz(t *testing.T) {
	rec, _ := do(t, newRouter(&stubAir{}, stubTokens{}), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSearchFlights_Envelope(t *testing.T) {
	air := &stubAir{}
	rec, out := do(t, newRouter(air, stubTokens{}), http.MethodPost, "/api/flights/search", searchBody,
		map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, out.Success)
	var res domain.SearchResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	assert.Equal(t, "tr-1", res.TraceID)
	require.Len(t, air.seen, 1)
	assert.Equal(t, "cached", air.seen[0].TokenID)
	assert.Equal(t, "203.0.113.9", air.seen[0].EndUserIP)
}

func TestCallerTokenHeaderWins(t *testing.T) {
	air := &stubAir{}
	rec, _ := do(t, newRouter(air, stubTokens{}), http.MethodPost, "/api/flights/search", searchBody,
		map[string]string{"X-Provider-Token": "user-tok"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-tok", air.seen[0].TokenID)
}

func TestBadRequests(t *testing.T) {
	h := newRouter(&stubAir{}, stubTokens{})
	cases := map[string]struct{ path, body string }{
		"empty body":     {"/api/flights/search", ""},
		"broken json":    {"/api/flights/fare-quote", "{"},
		"no adults":      {"/api/flights/search", `{"segments":[]}`},
		"missing ref":    {"/api/flights/ticket", `{}`},
		"hotel no rooms": {"/api/hotels/search", `{"checkIn":"2026-12-24","nights":1,"countryCode":"IN","cityId":"1"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, out := do(t, h, http.MethodPost, tc.path, tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestProviderErrorIs502(t *testing.T) {
	air := &stubAir{quoteErr: &domain.ProviderError{Code: 25, Message: "Fare not available"}}
	rec, out := do(t, newRouter(air, stubTokens{}), http.MethodPost, "/api/flights/fare-quote",
		`{"traceId":"tr-1","resultIndex":"OB1"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "25: Fare not available", out.Message)
}

func TestPriceChangedIs409WithQuote(t *testing.T) {
	air := &stubAir{quote: domain.Payload{
		"TraceId": "tr-1", "IsPriceChanged": true,
		"Results": map[string]any{"ResultIndex": "OB1", "IsLCC": true, "Fare": map[string]any{"OfferedFare": 4100.0}},
	}}
	body := `{"traceId":"tr-1","resultIndex":"OB1","passengers":[{"firstName":"A","lastName":"B","paxType":1,"isLeadPax":true}]}`
	rec, out := do(t, newRouter(air, stubTokens{}), http.MethodPost, "/api/flights/book", body, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, out.Success)
	var q domain.FareQuote
	require.NoError(t, json.Unmarshal(out.Data, &q))
	assert.InDelta(t, 4100, q.Fare.OfferedFare, 0.001)
}

func TestNoCredentialsIs401(t *testing.T) {
	rec, out := do(t, newRouter(&stubAir{}, nil), http.MethodPost, "/api/flights/authenticate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, out.Success)
}

func TestGetBooking_NotFoundAndETag(t *testing.T) {
	h := newRouter(&stubAir{}, stubTokens{})

	rec, out := do(t, h, http.MethodGet, "/api/bookings/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, out.Success)

	rec, out = do(t, h, http.MethodGet, "/api/bookings/r1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec, _ = do(t, h, http.MethodGet, "/api/bookings/r1", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestListBookings(t *testing.T) {
	h := newRouter(&stubAir{}, stubTokens{})

	rec, _ := do(t, h, http.MethodGet, "/api/bookings?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := do(t, h, http.MethodGet, "/api/bookings?status=held,quoted&kind=flight", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(out.Data))
}

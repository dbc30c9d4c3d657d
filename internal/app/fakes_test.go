package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"tbo_gateway/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Booking
	gets int
	// ctx.Err() seen by each UpdateBooking
	updateCtxErrs []error
}

func (f *fakeRepo) CreateBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[string]domain.Booking{}
	}
	f.rows[b.Ref] = b
	return nil
}

func (f *fakeRepo) UpdateBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCtxErrs = append(f.updateCtxErrs, ctx.Err())
	if _, ok := f.rows[b.Ref]; !ok {
		return domain.ErrNotFound
	}
	f.rows[b.Ref] = b
	return nil
}

func (f *fakeRepo) GetBooking(ctx context.Context, ref string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	b, ok := f.rows[ref]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.rows {
		if q.Kind != "" && b.Kind != q.Kind {
			continue
		}
		if len(q.Status) > 0 {
			hit := false
			for _, s := range q.Status {
				hit = hit || s == b.Status
			}
			if !hit {
				continue
			}
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeRepo) only() domain.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		return b
	}
	return domain.Booking{}
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakeTokens struct {
	token     string
	refreshed string
	calls     int
	refreshes int
}

func (t *fakeTokens) Token(ctx context.Context, ip string) (string, error) {
	t.calls++
	return t.token, nil
}

func (t *fakeTokens) Refresh(ctx context.Context, ip string) (string, error) {
	t.refreshes++
	t.token = t.refreshed
	return t.token, nil
}

// fakeAir answers from canned payloads and records what it was asked.
type fakeAir struct {
	search, fareRule, quote, ssr domain.Payload
	book, ticket, details        domain.Payload
	release, change              domain.Payload

	quoteErr, bookErr, ticketErr, detailsErr error

	// searchByToken, when set, answers Search per session token.
	searchByToken map[string]domain.Payload
	// onTicket runs inside TicketLCC, before it answers.
	onTicket func()

	calls     []string
	sessions  []domain.Session
	bookedRef domain.ResultRef
	bookedPax []domain.Passenger
	ticketed  struct {
		traceID, pnr string
		bookingID    int64
	}
}

func (f *fakeAir) record(name string, s domain.Session) {
	f.calls = append(f.calls, name)
	f.sessions = append(f.sessions, s)
}

func (f *fakeAir) Search(ctx context.Context, s domain.Session, q domain.FlightSearch) (domain.Payload, error) {
	f.record("Search", s)
	if f.searchByToken != nil {
		return f.searchByToken[s.TokenID], nil
	}
	return f.search, nil
}

func (f *fakeAir) FareRule(ctx context.Context, s domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	f.record("FareRule", s)
	return f.fareRule, nil
}

func (f *fakeAir) FareQuote(ctx context.Context, s domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	f.record("FareQuote", s)
	return f.quote, f.quoteErr
}

func (f *fakeAir) SSR(ctx context.Context, s domain.Session, ref domain.ResultRef) (domain.Payload, error) {
	f.record("SSR", s)
	return f.ssr, nil
}

func (f *fakeAir) Book(ctx context.Context, s domain.Session, ref domain.ResultRef, pax []domain.Passenger) (domain.Payload, error) {
	f.record("Book", s)
	f.bookedRef, f.bookedPax = ref, pax
	return f.book, f.bookErr
}

func (f *fakeAir) TicketLCC(ctx context.Context, s domain.Session, ref domain.ResultRef, pax []domain.Passenger) (domain.Payload, error) {
	f.record("TicketLCC", s)
	f.bookedRef, f.bookedPax = ref, pax
	if f.onTicket != nil {
		f.onTicket()
	}
	return f.ticket, f.ticketErr
}

func (f *fakeAir) TicketNonLCC(ctx context.Context, s domain.Session, traceID, pnr string, bookingID int64) (domain.Payload, error) {
	f.record("TicketNonLCC", s)
	f.ticketed.traceID, f.ticketed.pnr, f.ticketed.bookingID = traceID, pnr, bookingID
	return f.ticket, f.ticketErr
}

func (f *fakeAir) BookingDetails(ctx context.Context, s domain.Session, q domain.BookingLookup) (domain.Payload, error) {
	f.record("BookingDetails", s)
	return f.details, f.detailsErr
}

func (f *fakeAir) ReleasePNR(ctx context.Context, s domain.Session, bookingID int64, source int) (domain.Payload, error) {
	f.record("ReleasePNR", s)
	return f.release, nil
}

func (f *fakeAir) SendChangeRequest(ctx context.Context, s domain.Session, bookingID int64, c domain.Change) (domain.Payload, error) {
	f.record("SendChangeRequest", s)
	return f.change, nil
}

func (f *fakeAir) called(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// fakeHotels replays one response (payload or error) per search call.
type fakeHotels struct {
	searches []struct {
		p   domain.Payload
		err error
	}
	searchTokens []string
	book         domain.Payload
	bookErr      error
	rooms        domain.Payload
}

func (f *fakeHotels) SearchHotels(ctx context.Context, s domain.Session, q domain.HotelSearch) (domain.Payload, error) {
	f.searchTokens = append(f.searchTokens, s.TokenID)
	i := len(f.searchTokens) - 1
	if i >= len(f.searches) {
		i = len(f.searches) - 1
	}
	return f.searches[i].p, f.searches[i].err
}

func (f *fakeHotels) HotelInfo(ctx context.Context, s domain.Session, ref domain.HotelRef) (domain.Payload, error) {
	return domain.Payload{}, nil
}

func (f *fakeHotels) HotelRooms(ctx context.Context, s domain.Session, ref domain.HotelRef) (domain.Payload, error) {
	return f.rooms, nil
}

func (f *fakeHotels) BlockRoom(ctx context.Context, s domain.Session, r domain.HotelBlockRequest) (domain.Payload, error) {
	return domain.Payload{"IsPriceChanged": false}, nil
}

func (f *fakeHotels) BookHotel(ctx context.Context, s domain.Session, r domain.HotelBlockRequest) (domain.Payload, error) {
	return f.book, f.bookErr
}

// payload decodes a JSON literal the way the provider client does.
func payload(s string) domain.Payload {
	var p domain.Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		panic(err)
	}
	return p
}

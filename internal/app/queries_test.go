package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tbo_gateway/internal/app"
	"tbo_gateway/internal/domain"
)

// ---- tests ----

func TestGetBooking_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{rows: map[string]domain.Booking{
		"r1": {Ref: "r1", Kind: domain.KindFlight, Status: domain.StatusHeld, PNR: "PNR9"},
	}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	b, err := q.GetBooking(context.Background(), "r1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if b.PNR != "PNR9" || b.Status != domain.StatusHeld {
		t.Fatalf("unexpected booking: %+v", b)
	}

	// Hit (should not touch repo)
	repo.rows["r1"] = domain.Booking{Ref: "r1", PNR: "CHANGED"}
	b2, err := q.GetBooking(context.Background(), "r1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if b2.PNR != "PNR9" {
		t.Fatalf("expected cached value, got %+v", b2)
	}
	if repo.gets != 1 {
		t.Fatalf("expected one repo read, got %d", repo.gets)
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute)
	if _, err := q.GetBooking(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBookings_LimitsAndFilters(t *testing.T) {
	repo := &fakeRepo{rows: map[string]domain.Booking{}}
	for _, ref := range []string{"a", "b", "c"} {
		repo.rows[ref] = domain.Booking{Ref: ref, Kind: domain.KindHotel, Status: domain.StatusConfirmed}
	}
	repo.rows["f"] = domain.Booking{Ref: "f", Kind: domain.KindFlight, Status: domain.StatusHeld}
	q := app.NewQueryService(repo, nil, time.Minute)

	out, err := q.ListBookings(context.Background(), domain.BookingsQuery{Kind: domain.KindHotel, Limit: 2})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || out[0].Ref != "a" {
		t.Fatalf("unexpected page: %+v", out)
	}

	out, err = q.ListBookings(context.Background(), domain.BookingsQuery{Status: []domain.BookingStatus{domain.StatusFailed}})
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", out, err)
	}

	if _, err := q.ListBookings(context.Background(), domain.BookingsQuery{Kind: "train"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

package app

import (
	"context"
	"time"

	"tbo_gateway/internal/domain"
)

type QueryService struct {
	repo     domain.BookingRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.BookingRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetBooking(ctx context.Context, ref string) (domain.Booking, error) {
	key := bookingKey(ref)
	var b domain.Booking
	if cacheGet(ctx, s.cache, key, &b) {
		return b, nil
	}
	b, err := s.repo.GetBooking(ctx, ref)
	if err != nil {
		return domain.Booking{}, err
	}
	cacheSet(ctx, s.cache, key, b, s.cacheTTL)
	return b, nil
}

const maxListLimit = 200

// ListBookings is not cached; rows move under the reconciler.
func (s *QueryService) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.Kind != "" && q.Kind != domain.KindFlight && q.Kind != domain.KindHotel {
		return nil, domain.InvalidInput("kind must be flight or hotel")
	}
	out, err := s.repo.ListBookings(ctx, q)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Booking{}
	}
	return out, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tbo_gateway/internal/adapters/observability"
	"tbo_gateway/internal/domain"
)

// ledger records every booking attempt. A ledger write failing after the
// provider already booked must not hide the provider's answer from the
// caller, so save only logs.
type ledger struct {
	repo  domain.BookingRepository
	cache domain.Cache
	now   func() time.Time
}

// ledgerWriteTimeout bounds a ledger write that outlives its request.
const ledgerWriteTimeout = 10 * time.Second

func bookingKey(ref string) string { return "booking:" + ref }

func (l *ledger) create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	b.Ref = uuid.NewString()
	b.CreatedAt = l.now().UTC()
	b.UpdatedAt = b.CreatedAt
	if b.Status == "" {
		b.Status = domain.StatusQuoted
	}
	if err := l.repo.CreateBooking(ctx, b); err != nil {
		return domain.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	return b, nil
}

// save writes b even when the request that produced it has already ended,
// so a provider answer is never lost to a cancelled caller.
func (l *ledger) save(ctx context.Context, b domain.Booking) domain.Booking {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()
	b.UpdatedAt = l.now().UTC()
	if err := l.repo.UpdateBooking(ctx, b); err != nil {
		log.Error().Err(err).Str("ref", b.Ref).Str("status", string(b.Status)).Msg("ledger update failed")
	}
	if l.cache != nil {
		_ = l.cache.Del(ctx, bookingKey(b.Ref))
	}
	observability.ObserveBooking(string(b.Kind), string(b.Status))
	return b
}

// fail marks b failed with cause and hands cause back.
func (l *ledger) fail(ctx context.Context, b domain.Booking, cause error) error {
	b.Status = domain.StatusFailed
	b.Error = cause.Error()
	l.save(ctx, b)
	return cause
}

// unsettled records cause on b without moving its status. Used when the
// provider call ended without an answer and may still have gone through;
// the reconciler settles the row later.
func (l *ledger) unsettled(ctx context.Context, b domain.Booking, cause error) error {
	b.Error = cause.Error()
	l.save(ctx, b)
	return cause
}

// outcomeUnknown reports whether err left a provider write in an unknown state.
func outcomeUnknown(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// session fills in the cached provider token unless the caller brought one.
func session(ctx context.Context, tokens domain.TokenSource, s domain.Session) (domain.Session, error) {
	if s.TokenID != "" {
		return s, nil
	}
	if tokens == nil {
		return s, fmt.Errorf("%w: no provider token", domain.ErrUnauthorized)
	}
	tok, err := tokens.Token(ctx, s.EndUserIP)
	if err != nil {
		return s, err
	}
	s.TokenID = tok
	return s, nil
}

func cacheGet(ctx context.Context, c domain.Cache, key string, dst any) bool {
	if c == nil {
		return false
	}
	ok, err := c.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func cacheSet(ctx context.Context, c domain.Cache, key string, v any, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	if err := c.Set(ctx, key, v, int(ttl.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

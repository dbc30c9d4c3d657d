package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tbo_gateway/internal/domain"
)

// ReconcileService refreshes pending ledger rows from GetBookingDetails.
type ReconcileService struct {
	air    domain.FlightProvider
	tokens domain.TokenSource
	ledger *ledger
	ip     string
}

func NewReconcileService(air domain.FlightProvider, tokens domain.TokenSource, repo domain.BookingRepository, cache domain.Cache, endUserIP string) *ReconcileService {
	return &ReconcileService{
		air:    air,
		tokens: tokens,
		ledger: &ledger{repo: repo, cache: cache, now: time.Now},
		ip:     endUserIP,
	}
}

// Pending lists flight bookings the provider may still move.
func (s *ReconcileService) Pending(ctx context.Context, limit int) ([]domain.Booking, error) {
	return s.ledger.repo.ListBookings(ctx, domain.BookingsQuery{
		Kind:   domain.KindFlight,
		Status: domain.PendingStatuses,
		Limit:  limit,
	})
}

// ReconcileBooking pulls the provider's view of b and stores the derived
// status. It reports whether the row changed.
func (s *ReconcileService) ReconcileBooking(ctx context.Context, b domain.Booking) (bool, error) {
	if b.Kind != domain.KindFlight || !b.Status.Pending() {
		return false, nil
	}
	q := domain.BookingLookup{BookingID: b.BookingID}
	if b.BookingID == 0 {
		if b.TraceID == "" {
			return false, nil
		}
		q = domain.BookingLookup{TraceID: b.TraceID}
	}

	sess, err := session(ctx, s.tokens, domain.Session{EndUserIP: s.ip})
	if err != nil {
		return false, err
	}
	p, err := s.air.BookingDetails(ctx, sess, q)
	if err != nil {
		low := strings.ToLower(err.Error())
		// a quoted row the provider never heard of was never booked
		if errors.Is(err, domain.ErrNotFound) || strings.Contains(low, "not found") || strings.Contains(low, "no booking") {
			if b.Status == domain.StatusQuoted {
				b.Status = domain.StatusFailed
				b.Error = "not found at provider"
				s.ledger.save(ctx, b)
				return true, nil
			}
			log.Warn().Str("ref", b.Ref).Msg("held booking missing at provider")
			return false, nil
		}
		return false, err
	}

	status := statusFromItinerary(p)
	out := mapBookingOutcome(p)
	if status == "" || (status == b.Status && (out.PNR == "" || out.PNR == b.PNR)) {
		return false, nil
	}
	b.Status = status
	if out.PNR != "" {
		b.PNR = out.PNR
	}
	if out.BookingID != 0 {
		b.BookingID = out.BookingID
	}
	if out.Itinerary != nil {
		b.Raw = out.Itinerary
	}
	b.Error = ""
	s.ledger.save(ctx, b)
	log.Info().Str("ref", b.Ref).Str("status", string(status)).Msg("booking reconciled")
	return true, nil
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tbo_gateway/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valInt64(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

var _ domain.BookingRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.Ref,
		string(b.Kind),
		b.TraceID,
		b.ResultIndex,
		valInt64(b.BookingID),
		valStr(b.PNR),
		b.IsLCC,
		b.Source,
		string(b.Status),
		b.Amount,
		b.Currency,
		b.LeadName,
		valStr(b.Error),
		valJSON(b.Raw),
		b.CreatedAt,
		b.UpdatedAt,
	)
	return err
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking) error {
	res, err := r.db.ExecContext(ctx, updateBookingSQL,
		b.TraceID,
		b.ResultIndex,
		valInt64(b.BookingID),
		valStr(b.PNR),
		b.IsLCC,
		b.Source,
		string(b.Status),
		b.Amount,
		b.Currency,
		b.LeadName,
		valStr(b.Error),
		valJSON(b.Raw),
		b.UpdatedAt,
		b.Ref,
	)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so only a
	// missing row is an error.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetBooking(ctx, b.Ref); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var kind, status string
	var bookingID sql.NullInt64
	var pnr, errText sql.NullString
	var raw []byte

	if err := s.Scan(
		&b.Ref, &kind, &b.TraceID, &b.ResultIndex,
		&bookingID, &pnr, &b.IsLCC, &b.Source, &status,
		&b.Amount, &b.Currency, &b.LeadName, &errText, &raw,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.Kind = domain.BookingKind(kind)
	b.Status = domain.BookingStatus(status)
	b.BookingID = bookingID.Int64
	b.PNR = pnr.String
	b.Error = errText.String
	if len(raw) > 0 {
		b.Raw = raw
	}
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, ref string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("get booking %s: %w", ref, err)
	}
	return b, nil
}

func (r *Repo) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	var sb strings.Builder
	sb.WriteString(listBookingsPrefix)
	args := make([]any, 0, len(q.Status)+2)
	if q.Kind != "" {
		sb.WriteString("\n  AND kind = ?")
		args = append(args, string(q.Kind))
	}
	if len(q.Status) > 0 {
		sb.WriteString("\n  AND status IN (?" + strings.Repeat(",?", len(q.Status)-1) + ")")
		for _, s := range q.Status {
			args = append(args, string(s))
		}
	}
	sb.WriteString(listBookingsSuffix)
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

package domain

import (
	"encoding/json"
	"slices"
	"time"
)

type BookingKind string

const (
	KindFlight BookingKind = "flight"
	KindHotel  BookingKind = "hotel"
)

type BookingStatus string

const (
	StatusQuoted    BookingStatus = "quoted"
	StatusHeld      BookingStatus = "held"
	StatusTicketed  BookingStatus = "ticketed"
	StatusConfirmed BookingStatus = "confirmed"
	StatusFailed    BookingStatus = "failed"
	StatusReleased  BookingStatus = "released"
	StatusCancelled BookingStatus = "cancelled"
)

// PendingStatuses are the statuses the provider may still move.
var PendingStatuses = []BookingStatus{StatusQuoted, StatusHeld}

// Pending reports whether the provider may still move the booking.
func (s BookingStatus) Pending() bool {
	return slices.Contains(PendingStatuses, s)
}

// Booking is a ledger row for every booking attempt made through the gateway.
type Booking struct {
	Ref         string          `json:"ref"`
	Kind        BookingKind     `json:"kind"`
	TraceID     string          `json:"traceId"`
	ResultIndex string          `json:"resultIndex"`
	BookingID   int64           `json:"bookingId,omitempty"`
	PNR         string          `json:"pnr,omitempty"`
	IsLCC       bool            `json:"isLCC"`
	Source      int             `json:"source,omitempty"`
	Status      BookingStatus   `json:"status"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	LeadName    string          `json:"leadName"`
	Error       string          `json:"error,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type BookingsQuery struct {
	Kind   BookingKind
	Status []BookingStatus
	Limit  int
}

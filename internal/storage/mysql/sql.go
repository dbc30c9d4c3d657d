package mysql

const insertBookingSQL = `
INSERT INTO bookings
  (ref, kind, trace_id, result_index, booking_id, pnr, is_lcc, source, status,
   amount, currency, lead_name, error, raw, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// ref, kind and created_at never change after insert.
const updateBookingSQL = `
UPDATE bookings SET
  trace_id     = ?,
  result_index = ?,
  booking_id   = ?,
  pnr          = ?,
  is_lcc       = ?,
  source       = ?,
  status       = ?,
  amount       = ?,
  currency     = ?,
  lead_name    = ?,
  error        = ?,
  raw          = COALESCE(?, raw),
  updated_at   = ?
WHERE ref = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const bookingColumns = `
  ref, kind, trace_id, result_index, booking_id, pnr, is_lcc, source, status,
  amount, currency, lead_name, error, raw, created_at, updated_at`

const getBookingSQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE ref = ?
`

// listBookingsPrefix is completed with optional filters, then
// listBookingsSuffix.
const listBookingsPrefix = `SELECT` + bookingColumns + `
FROM bookings
WHERE 1 = 1`

const listBookingsSuffix = `
ORDER BY updated_at DESC, ref
LIMIT ?`

package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tbo_gateway/internal/app"
	"tbo_gateway/internal/domain"
)

// tokenHeader carries a caller-bound provider token that overrides the
// process-wide cached one.
const tokenHeader = "X-Provider-Token"

const maxBody = 1 << 20

type Handlers struct {
	Flights *app.FlightService
	Hotels  *app.HotelService
	Q       *app.QueryService
	// EndUserIP is sent to the provider when the request carries no client address.
	EndUserIP string
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api/flights", func(r chi.Router) {
		r.Post("/authenticate", h.authenticate)
		r.Post("/search", h.searchFlights)
		r.Post("/fare-rules", h.fareRules)
		r.Post("/fare-quote", h.fareQuote)
		r.Post("/ssr", h.ssr)
		r.Post("/book", h.bookFlight)
		r.Post("/ticket", h.ticketFlight)
		r.Post("/booking-details", h.bookingDetails)
		r.Post("/release-pnr", h.releasePNR)
		r.Post("/cancel", h.cancelFlight)
	})
	s.mux.Route("/api/hotels", func(r chi.Router) {
		r.Post("/search", h.searchHotels)
		r.Post("/info", h.hotelInfo)
		r.Post("/rooms", h.hotelRooms)
		r.Post("/block", h.blockRoom)
		r.Post("/book", h.bookHotel)
	})
	s.mux.Get("/api/bookings", h.listBookings)
	s.mux.Get("/api/bookings/{ref}", h.getBooking)
}

/********** envelope **********/

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError maps domain errors onto status codes. Price changes carry the
// fresh quote so the caller can confirm it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	env := envelope{Message: err.Error()}
	var pc *app.PriceChangedError
	var perr *domain.ProviderError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &pc):
		status = http.StatusConflict
		env.Data = pc.Quote
	case errors.As(err, &perr), errors.Is(err, domain.ErrMalformedResponse):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	ev := log.Warn()
	if status >= 500 {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, status, env)
}

/********** request helpers **********/

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, envelope{Message: msg})
		return false
	}
	return true
}

// session builds the provider session from the caller's token header and
// address.
func (h *Handlers) session(r *http.Request) domain.Session {
	ip := remoteIP(r)
	if ip == "" {
		ip = h.EndUserIP
	}
	return domain.Session{
		TokenID:   strings.TrimSpace(r.Header.Get(tokenHeader)),
		EndUserIP: ip,
	}
}

type refBody struct {
	Ref string `json:"ref"`
}

/********** flights **********/

func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Flights.Authenticate(r.Context(), h.session(r).EndUserIP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]string{"tokenId": tok})
}

func (h *Handlers) searchFlights(w http.ResponseWriter, r *http.Request) {
	var q domain.FlightSearch
	if !decode(w, r, &q) {
		return
	}
	res, err := h.Flights.Search(r.Context(), h.session(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, res)
}

func (h *Handlers) fareRules(w http.ResponseWriter, r *http.Request) {
	var ref domain.ResultRef
	if !decode(w, r, &ref) {
		return
	}
	rules, err := h.Flights.FareRules(r.Context(), h.session(r), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, rules)
}

func (h *Handlers) fareQuote(w http.ResponseWriter, r *http.Request) {
	var ref domain.ResultRef
	if !decode(w, r, &ref) {
		return
	}
	q, err := h.Flights.FareQuote(r.Context(), h.session(r), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, q)
}

func (h *Handlers) ssr(w http.ResponseWriter, r *http.Request) {
	var ref domain.ResultRef
	if !decode(w, r, &ref) {
		return
	}
	out, err := h.Flights.SSR(r.Context(), h.session(r), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) bookFlight(w http.ResponseWriter, r *http.Request) {
	var req domain.BookRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Flights.Book(r.Context(), h.session(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) ticketFlight(w http.ResponseWriter, r *http.Request) {
	var body refBody
	if !decode(w, r, &body) {
		return
	}
	if body.Ref == "" {
		writeError(w, r, domain.InvalidInput("ref is required"))
		return
	}
	out, err := h.Flights.Ticket(r.Context(), h.session(r), body.Ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) bookingDetails(w http.ResponseWriter, r *http.Request) {
	var q domain.BookingLookup
	if !decode(w, r, &q) {
		return
	}
	out, err := h.Flights.BookingDetails(r.Context(), h.session(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) releasePNR(w http.ResponseWriter, r *http.Request) {
	var body refBody
	if !decode(w, r, &body) {
		return
	}
	if body.Ref == "" {
		writeError(w, r, domain.InvalidInput("ref is required"))
		return
	}
	b, err := h.Flights.ReleasePNR(r.Context(), h.session(r), body.Ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, b)
}

func (h *Handlers) cancelFlight(w http.ResponseWriter, r *http.Request) {
	var c domain.Change
	if !decode(w, r, &c) {
		return
	}
	out, err := h.Flights.Cancel(r.Context(), h.session(r), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

/********** hotels **********/

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	var q domain.HotelSearch
	if !decode(w, r, &q) {
		return
	}
	res, err := h.Hotels.Search(r.Context(), h.session(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, res)
}

func (h *Handlers) hotelInfo(w http.ResponseWriter, r *http.Request) {
	var ref domain.HotelRef
	if !decode(w, r, &ref) {
		return
	}
	out, err := h.Hotels.Info(r.Context(), h.session(r), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) hotelRooms(w http.ResponseWriter, r *http.Request) {
	var ref domain.HotelRef
	if !decode(w, r, &ref) {
		return
	}
	out, err := h.Hotels.Rooms(r.Context(), h.session(r), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) blockRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.HotelBlockRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Hotels.Block(r.Context(), h.session(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

func (h *Handlers) bookHotel(w http.ResponseWriter, r *http.Request) {
	var req domain.HotelBlockRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.Hotels.Book(r.Context(), h.session(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

/********** ledger **********/

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Q.GetBooking(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(envelope{Success: true, Data: b})
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getBooking body")
	}
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	q := domain.BookingsQuery{Kind: domain.BookingKind(r.URL.Query().Get("kind")), Limit: 50}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeError(w, r, domain.InvalidInput("limit must be an integer between 1 and 200"))
			return
		}
		q.Limit = l
	}
	if st := r.URL.Query().Get("status"); st != "" {
		for _, s := range strings.Split(st, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Status = append(q.Status, domain.BookingStatus(s))
			}
		}
	}
	out, err := h.Q.ListBookings(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, out)
}

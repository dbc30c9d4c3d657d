// internal/adapters/tektravels/client.go
package tektravels

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"tbo_gateway/internal/adapters/observability"
	"tbo_gateway/internal/domain"
	"tbo_gateway/internal/shared"
)

const (
	defaultTimeout = 60 * time.Second
	searchTimeout  = 120 * time.Second
	bookTimeout    = 180 * time.Second

	maxAttempts  = 4
	maxErrorBody = 64 << 10
)

// Endpoints are the provider's REST base URLs, one per service family.
type Endpoints struct {
	Shared string // Authenticate
	Air    string
	Hotel  string
}

type Client struct {
	ep Endpoints
	hc *http.Client
	rl *rate.Limiter
}

func New(ep Endpoints, rps int) (*Client, error) {
	if ep.Shared == "" || ep.Air == "" || ep.Hotel == "" {
		return nil, fmt.Errorf("provider base URLs are required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		ep: Endpoints{
			Shared: strings.TrimRight(ep.Shared, "/"),
			Air:    strings.TrimRight(ep.Air, "/"),
			Hotel:  strings.TrimRight(ep.Hotel, "/"),
		},
		// per-call deadlines come from the context; this is a backstop
		hc: &http.Client{Timeout: bookTimeout + 10*time.Second},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// call describes one provider endpoint.
type call struct {
	name     string // metrics/log label, e.g. "air.Search"
	url      string
	envelope string // key wrapping the payload; "" means top level
	timeout  time.Duration
	retry    bool // only for calls that do not change provider state
}

// do POSTs body as JSON and returns the payload under c.envelope.
// Provider errors are unwrapped from the envelope on both 2xx and error
// statuses. Retries (when allowed) cover 429 and transient 5xx, honoring
// Retry-After.
func (c *Client) do(ctx context.Context, cl call, body any) (domain.Payload, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	if cl.timeout <= 0 {
		cl.timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, cl.timeout)
	defer cancel()

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tektravels %s: encode request: %w", cl.name, err)
	}

	attempts := 1
	if cl.retry {
		attempts = maxAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.url, bytes.NewReader(buf))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tbo-gateway/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("tektravels", cl.name, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, fmt.Errorf("tektravels %s: %w", cl.name, ctx.Err())
			}
			lastErr = fmt.Errorf("tektravels %s: %w", cl.name, err)
			log.Warn().Str("endpoint", cl.name).Int("attempt", i+1).
				Str("err_type", observability.LabelErr(err)).Err(err).Msg("provider call failed")
			if i < attempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, lastErr
		}
		observability.ObserveExternal("tektravels", cl.name, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			raw, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("tektravels %s: read response: %w", cl.name, err)
			}
			log.Debug().Str("endpoint", cl.name).Dur("duration", time.Since(start)).Int("bytes", len(raw)).Msg("provider call ok")
			return unwrap(cl, raw)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			if perr := errorFromBody(cl, raw); perr != nil {
				return nil, perr
			}
			lastErr = fmt.Errorf("tektravels %s: remote %d", cl.name, resp.StatusCode)
			if wait == 0 {
				wait = backoff(i)
			}
			if i < attempts-1 && sleepCtx(ctx, wait) {
				log.Warn().Str("endpoint", cl.name).Int("status", resp.StatusCode).Int("attempt", i+1).Msg("retrying provider call")
				continue
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("tektravels %s: %w", cl.name, ctx.Err())
			}
			return nil, lastErr

		default:
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			if perr := errorFromBody(cl, raw); perr != nil {
				return nil, perr
			}
			switch resp.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, fmt.Errorf("tektravels %s: %w", cl.name, domain.ErrUnauthorized)
			case http.StatusNotFound:
				return nil, fmt.Errorf("tektravels %s: %w", cl.name, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("tektravels %s: bad status %d: %s", cl.name, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
	}
	return nil, lastErr
}

// unwrap decodes a 2xx body, selects the envelope and surfaces any
// provider error it carries.
func unwrap(cl call, raw []byte) (domain.Payload, error) {
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("tektravels %s: decode response: %w", cl.name, err)
	}
	payload := top
	if cl.envelope != "" {
		payload = shared.Map(top, cl.envelope)
		if payload == nil {
			return nil, fmt.Errorf("tektravels %s: missing %s: %w", cl.name, cl.envelope, domain.ErrMalformedResponse)
		}
	}
	if perr := providerError(payload); perr != nil {
		return nil, perr
	}
	return payload, nil
}

// errorFromBody extracts a provider error from a non-2xx body, if it has one.
func errorFromBody(cl call, raw []byte) error {
	var top map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &top) != nil {
		return nil
	}
	payload := top
	if cl.envelope != "" {
		if p := shared.Map(top, cl.envelope); p != nil {
			payload = p
		}
	}
	if perr := providerError(payload); perr != nil {
		return perr
	}
	return nil
}

// providerError reads Error{ErrorCode, ErrorMessage}. Code 0 means success.
func providerError(payload domain.Payload) *domain.ProviderError {
	code := shared.IntOr(payload, 0, "Error.ErrorCode")
	if code == 0 {
		return nil
	}
	msg := shared.Str(payload, "Error.ErrorMessage")
	if msg == "" {
		msg = "provider request failed"
	}
	return &domain.ProviderError{Code: code, Message: msg}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms doubling per attempt plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

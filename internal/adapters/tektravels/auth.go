package tektravels

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"tbo_gateway/internal/adapters/observability"
	"tbo_gateway/internal/domain"
	"tbo_gateway/internal/shared"
)

const tokenKey = "tektravels:token"

type Credentials struct {
	ClientID string
	UserName string
	Password string
}

// Authenticator caches the provider TokenId until 23:59:59 local time of
// the day it was issued. Concurrent callers that find the token missing or
// expired share a single Authenticate call. When a store is given the token
// is mirrored there so other processes reuse it.
type Authenticator struct {
	c     *Client
	creds Credentials
	store domain.Cache
	now   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time

	group singleflight.Group
}

type storedToken struct {
	TokenID   string    `json:"tokenId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAuthenticator(c *Client, creds Credentials, store domain.Cache) (*Authenticator, error) {
	if creds.UserName == "" || creds.Password == "" {
		return nil, fmt.Errorf("provider credentials are required")
	}
	return &Authenticator{c: c, creds: creds, store: store, now: time.Now}, nil
}

// endOfDay is 23:59:59 on t's calendar day in t's location.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func (a *Authenticator) Token(ctx context.Context, endUserIP string) (string, error) {
	if tok, ok := a.cached(); ok {
		return tok, nil
	}
	if tok, ok := a.loadShared(ctx); ok {
		return tok, nil
	}
	return a.authenticate(ctx, endUserIP)
}

func (a *Authenticator) Refresh(ctx context.Context, endUserIP string) (string, error) {
	a.mu.Lock()
	a.token, a.expires = "", time.Time{}
	a.mu.Unlock()
	if a.store != nil {
		if err := a.store.Del(ctx, tokenKey); err != nil {
			log.Warn().Err(err).Msg("drop shared provider token failed")
		}
	}
	return a.authenticate(ctx, endUserIP)
}

func (a *Authenticator) cached() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == "" || a.now().After(a.expires) {
		return "", false
	}
	return a.token, true
}

func (a *Authenticator) remember(tok string, exp time.Time) {
	a.mu.Lock()
	a.token, a.expires = tok, exp
	a.mu.Unlock()
}

func (a *Authenticator) loadShared(ctx context.Context) (string, bool) {
	if a.store == nil {
		return "", false
	}
	var st storedToken
	ok, err := a.store.Get(ctx, tokenKey, &st)
	if err != nil {
		log.Warn().Err(err).Msg("read shared provider token failed")
		return "", false
	}
	if !ok || st.TokenID == "" || a.now().After(st.ExpiresAt) {
		return "", false
	}
	a.remember(st.TokenID, st.ExpiresAt)
	return st.TokenID, true
}

// authenticate runs one shared Authenticate call. The call is detached from
// the caller that started it; each caller only stops waiting when its own
// context ends.
func (a *Authenticator) authenticate(ctx context.Context, endUserIP string) (string, error) {
	ch := a.group.DoChan("auth", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		// a caller ahead of us in the group may have just stored one
		if tok, ok := a.cached(); ok {
			return tok, nil
		}
		p, err := a.c.Authenticate(ctx, a.creds, endUserIP)
		if err != nil {
			observability.ObserveTokenRefresh(err)
			return "", err
		}
		tok := shared.Str(p, "TokenId")
		if tok == "" {
			err := fmt.Errorf("tektravels shared.Authenticate: no TokenId: %w", domain.ErrMalformedResponse)
			observability.ObserveTokenRefresh(err)
			return "", err
		}
		now := a.now()
		exp := endOfDay(now)
		a.remember(tok, exp)
		observability.ObserveTokenRefresh(nil)
		log.Info().Time("expires", exp).Msg("provider token refreshed")

		if a.store != nil {
			ttl := int(exp.Sub(now).Seconds())
			if ttl > 0 {
				if err := a.store.Set(ctx, tokenKey, storedToken{TokenID: tok, ExpiresAt: exp}, ttl); err != nil {
					log.Warn().Err(err).Msg("share provider token failed")
				}
			}
		}
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

// Authenticate calls the provider's Authenticate endpoint. Status other than
// 1 without an error code is treated as a failure.
func (c *Client) Authenticate(ctx context.Context, creds Credentials, endUserIP string) (domain.Payload, error) {
	p, err := c.do(ctx, call{
		name:  "shared.Authenticate",
		url:   c.ep.Shared + "/Authenticate",
		retry: true,
	}, authRequest{
		ClientId:  creds.ClientID,
		UserName:  creds.UserName,
		Password:  creds.Password,
		EndUserIp: endUserIP,
	})
	if err != nil {
		return nil, err
	}
	if st, ok := shared.Int64(p, "Status"); ok && st != 1 {
		return nil, fmt.Errorf("tektravels shared.Authenticate: status %d: %w", st, domain.ErrUnauthorized)
	}
	return p, nil
}

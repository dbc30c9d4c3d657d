package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "tbo_gateway/internal/adapters/redis"
)

type quote struct {
	TraceID string  `json:"traceId"`
	Fare    float64 `json:"fare"`
}

func TestCache_SetGetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	var got quote
	ok, err := c.Get(ctx, "quote:t1:OB1", &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "quote:t1:OB1", quote{TraceID: "t1", Fare: 4321.5}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("tbo:quote:t1:OB1") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}

	ok, err = c.Get(ctx, "quote:t1:OB1", &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.TraceID != "t1" || got.Fare != 4321.5 {
		t.Fatalf("unexpected value: %+v", got)
	}

	if err := c.Del(ctx, "quote:t1:OB1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "quote:t1:OB1", &got); ok {
		t.Fatalf("expected miss after del")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	if err := c.Set(ctx, "search:abc", quote{TraceID: "x"}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("tbo:search:abc"); ttl != 30*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	mr.FastForward(31 * time.Second)

	var got quote
	if ok, _ := c.Get(ctx, "search:abc", &got); ok {
		t.Fatalf("expected expiry")
	}
}

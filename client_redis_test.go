package goSnap

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func signatureKeys(mr *miniredis.Miniredis) []string {
	var out []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "gosnap:sig:e:") {
			out = append(out, k)
		}
	}
	return out
}

func TestRedisTokenCacheLifecycle(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ft := newFakeTransport()
	ft.respond(EndpointLogin, http.StatusOK, loginBody)
	ft.respond(EndpointAllUpdates, http.StatusOK, `{"updates_response":{"username":"alice"}}`)
	ft.respond(EndpointLogout, http.StatusOK, `{}`)

	c, err := New().
		WithBaseURL(testBaseURL).
		WithCredentials("key", "secret", "").
		WithTransport(ft).
		WithRedis(rdb).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, err := c.SignIn(ctx, "alice", "hunter2"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if keys := signatureKeys(mr); len(keys) != 0 {
		t.Fatalf("expected cache cleared after sign in, got %v", keys)
	}

	for i := 0; i < 2; i++ {
		if err := c.UpdateSession(ctx); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	keys := signatureKeys(mr)
	if len(keys) != 1 || keys[0] != "gosnap:sig:e:"+EndpointAllUpdates {
		t.Fatalf("unexpected cache keys %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 {
		t.Fatalf("expected cache entry ttl, got %v", ttl)
	}
	if got := c.MetricsSnapshot().Counters[MetricSignatureCacheHit]; got != 1 {
		t.Fatalf("expected one redis cache hit, got %d", got)
	}

	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if keys := signatureKeys(mr); len(keys) != 0 {
		t.Fatalf("expected cache cleared after sign out, got %v", keys)
	}
}

func TestRedisOutageDoesNotFailRequests(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ft := newFakeTransport()
	ft.respond(EndpointLogin, http.StatusOK, loginBody)

	c, err := New().
		WithBaseURL(testBaseURL).
		WithCredentials("key", "secret", "").
		WithTransport(ft).
		WithRedis(rdb).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	mr.SetError("LOADING redis is loading")
	if _, err := c.SignIn(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("sign in must survive cache outage: %v", err)
	}
	if got := c.MetricsSnapshot().Counters[MetricSignatureCacheError]; got == 0 {
		t.Fatalf("expected cache errors to be counted")
	}
	mr.SetError("")
}

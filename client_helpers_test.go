package goSnap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSnap/tokencache"
	"github.com/MrEthical07/goSnap/transport"
)

const testBaseURL = "https://api.example.test"

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

type handlerFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

// fakeTransport routes requests by endpoint path and records every request
// it receives.
type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests []*transport.Request
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]handlerFunc)}
}

func (f *fakeTransport) handle(endpoint string, h handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[endpoint] = h
}

func (f *fakeTransport) respond(endpoint string, status int, body string) {
	f.handle(endpoint, func(context.Context, *transport.Request) (*transport.Response, error) {
		return jsonResponse(status, body), nil
	})
}

func (f *fakeTransport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	endpoint := endpointOf(req.URL)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	h := f.handlers[endpoint]
	f.mu.Unlock()

	if h == nil {
		return jsonResponse(http.StatusNotFound, `{"error":"unexpected endpoint"}`), nil
	}
	return h(ctx, req)
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) calls(endpoint string) []*transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*transport.Request
	for _, r := range f.requests {
		if endpointOf(r.URL) == endpoint {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeTransport) last(t *testing.T, endpoint string) *transport.Request {
	t.Helper()
	calls := f.calls(endpoint)
	if len(calls) == 0 {
		t.Fatalf("no request to %s", endpoint)
	}
	return calls[len(calls)-1]
}

func endpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

func jsonResponse(status int, body string) *transport.Response {
	return &transport.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

// requestParams decodes the parameters of a form, multipart, or query
// request. Multipart file parts are keyed "@" + field name.
func requestParams(t *testing.T, req *transport.Request) map[string]string {
	t.Helper()

	out := make(map[string]string)
	if req.Method == http.MethodGet {
		u, err := url.Parse(req.URL)
		if err != nil {
			t.Fatalf("parse url: %v", err)
		}
		for k := range u.Query() {
			out[k] = u.Query().Get(k)
		}
		return out
	}

	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(bytes.NewReader(req.Body), params["boundary"])
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("next part: %v", err)
			}
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("read part: %v", err)
			}
			key := part.FormName()
			if part.FileName() != "" {
				key = "@" + key
			}
			out[key] = string(data)
		}
		return out
	}

	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	for k := range values {
		out[k] = values.Get(k)
	}
	return out
}

type testClientOption func(*Builder)

// newTestClient builds a client over a fake transport and an inspectable
// memory token cache with a fixed clock.
func newTestClient(t *testing.T, opts ...testClientOption) (*Client, *fakeTransport, *tokencache.Memory) {
	t.Helper()

	ft := newFakeTransport()
	cache := tokencache.NewMemory(time.Hour)
	b := New().
		WithBaseURL(testBaseURL).
		WithCredentials("key", "secret", "gosnap-test/1.0").
		WithTransport(ft).
		WithTokenCache(cache).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}

	c, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c.now = func() time.Time { return testNow }
	t.Cleanup(c.Close)
	return c, ft, cache
}

const loginBody = `{
	"updates_response": {"username": "Alice", "email": "alice@example.test", "score": 42, "received": 3, "sent": 5},
	"auth_token": "auth-token-1",
	"device_token_1i": "dt-i",
	"device_token_1v": "dt-v"
}`

// signedInClient returns a client signed in as "alice".
func signedInClient(t *testing.T, opts ...testClientOption) (*Client, *fakeTransport, *tokencache.Memory) {
	t.Helper()

	c, ft, cache := newTestClient(t, opts...)
	ft.respond(EndpointLogin, http.StatusOK, loginBody)
	if _, err := c.SignIn(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return c, ft, cache
}

func requireKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}

func blockUntilCanceled(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func waitForRequests(t *testing.T, ft *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ft.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d requests, got %d", n, ft.count())
		}
		time.Sleep(time.Millisecond)
	}
}

package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single exchange when no client is supplied.
const DefaultTimeout = 30 * time.Second

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 64 << 20

// HTTP is a Transport backed by net/http.
type HTTP struct {
	client *http.Client
}

// NewHTTP returns an HTTP transport with the given timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// NewHTTPWithClient wraps an existing *http.Client.
func NewHTTPWithClient(client *http.Client) *HTTP {
	if client == nil {
		return NewHTTP(0)
	}
	return &HTTP{client: client}
}

// Do performs the exchange and buffers the response body.
func (h *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

package goSnap

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/goSnap/internal/flows"
	"github.com/MrEthical07/goSnap/transport"
)

// RequestDescriptor describes one outbound request.
type RequestDescriptor struct {
	Endpoint string
	// Method defaults to POST.
	Method string
	Params map[string]string
	// File switches the body to multipart/form-data.
	File *transport.File
	// SigningContext is the token cache key. It defaults to Endpoint.
	SigningContext    string
	RequiresSignature bool
	RequiresSession   bool
	// Binary bodies are judged by status code alone.
	Binary bool
}

// Payload is a successful response after normalization.
type Payload struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (p *Payload) Decode(v any) error {
	if p == nil || len(p.Body) == 0 {
		return flows.ErrMalformedResponse
	}
	if err := json.Unmarshal(p.Body, v); err != nil {
		return flows.ErrMalformedResponse
	}
	return nil
}

// ResponseContext describes the response handed to a Normalizer.
type ResponseContext struct {
	Endpoint   string
	StatusCode int
	Header     http.Header
}

// Normalizer rewrites a response before it reaches the caller. It receives
// the raw body and the error produced by default interpretation (nil on
// success) and returns the final body and error. Returning a nil error marks
// the call successful.
type Normalizer func(ctx context.Context, rc ResponseContext, body []byte, err error) ([]byte, error)

// Execute signs, dispatches, and interprets one request. It fails with
// KindNotAuthenticated before any I/O when d requires a session the client
// does not hold, and with KindMissingCredentials when d requires a signature
// and no credentials are configured.
func (c *Client) Execute(ctx context.Context, d RequestDescriptor) (*Payload, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	return c.execute(ctx, "execute", d)
}

func (c *Client) execute(ctx context.Context, op string, d RequestDescriptor) (*Payload, error) {
	return c.executeAs(ctx, op, d, c.sessionView)
}

func (c *Client) sessionView() flows.SessionView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return flows.SessionView{
		SignedIn:  c.state == StateSignedIn,
		Username:  c.session.Username,
		AuthToken: c.session.AuthToken,
	}
}

// executeAs runs d against the session reported by view.
func (c *Client) executeAs(ctx context.Context, op string, d RequestDescriptor, view func() flows.SessionView) (*Payload, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var requestID string
	deps := c.executeDeps(view)
	deps.NewRequestID = func() string {
		requestID = c.newRequestID()
		return requestID
	}

	start := c.now()
	res := flows.RunExecute(ctx, flows.Descriptor{
		Endpoint:          d.Endpoint,
		Method:            d.Method,
		Params:            d.Params,
		File:              d.File,
		SigningContext:    d.SigningContext,
		RequiresSignature: d.RequiresSignature,
		RequiresSession:   d.RequiresSession,
		Binary:            d.Binary,
	}, deps)

	switch res.Failure {
	case flows.ExecuteFailureNotAuthenticated, flows.ExecuteFailureMissingCredentials, flows.ExecuteFailureBuild:
	default:
		c.metricInc(MetricRequestDispatched)
		if c.metrics.LatencyEnabled() {
			c.metrics.Observe(MetricRequestLatency, c.now().Sub(start))
		}
	}

	if res.Failure == flows.ExecuteFailureNone {
		c.metricInc(MetricRequestSuccess)
		c.logger.Trace("request completed", "op", op, "endpoint", d.Endpoint, "request_id", requestID, "status", res.Response.StatusCode)
		return &Payload{
			StatusCode: res.Response.StatusCode,
			Header:     res.Response.Header,
			Body:       res.Body,
			RequestID:  requestID,
		}, nil
	}

	err := c.mapExecuteFailure(op, res)
	c.logger.Debug("request failed", "op", op, "endpoint", d.Endpoint, "request_id", requestID, "kind", err.Kind.String(), "detail", err.Detail)
	return nil, err
}

func (c *Client) executeDeps(view func() flows.SessionView) flows.ExecuteDeps {
	deps := flows.ExecuteDeps{
		Credentials: flows.Credentials{
			APIKey:    c.config.Credentials.APIKey,
			APISecret: c.config.Credentials.APISecret,
			UserAgent: c.config.Credentials.UserAgent,
		},
		BaseURL:         c.config.Endpoint.BaseURL,
		RequestTokenTTL: c.config.Endpoint.RequestTokenTTL,
		Session:         view,
		Transport:       c.transport,
		Now:             c.now,
		OnCacheHit: func(string) {
			c.metricInc(MetricSignatureCacheHit)
		},
		OnCacheMiss: func(string) {
			c.metricInc(MetricSignatureCacheMiss)
		},
		OnCacheError: func(key string, err error) {
			c.metricInc(MetricSignatureCacheError)
			c.logger.Warn("token cache unavailable, signing without cache", "key", key, "error", err)
		},
	}
	if c.cache != nil {
		deps.Cache = c.cache
	}
	if c.normalizer != nil {
		n := c.normalizer
		deps.Normalize = func(ctx context.Context, endpoint string, resp *transport.Response, err error) ([]byte, error) {
			return n(ctx, ResponseContext{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
			}, resp.Body, err)
		}
	}
	return deps
}

func (c *Client) mapExecuteFailure(op string, res flows.ExecuteResult) *Error {
	switch res.Failure {
	case flows.ExecuteFailureNotAuthenticated:
		c.metricInc(MetricNotAuthenticated)
		return &Error{Kind: KindNotAuthenticated, Op: op, Detail: res.Detail}
	case flows.ExecuteFailureMissingCredentials:
		c.metricInc(MetricMissingCredentials)
		return &Error{Kind: KindMissingCredentials, Op: op, Detail: res.Detail}
	case flows.ExecuteFailureBuild:
		c.metricInc(MetricPreconditionViolation)
		return &Error{Kind: KindPreconditionViolation, Op: op, Detail: res.Detail, Err: res.Err}
	case flows.ExecuteFailureCanceled:
		c.metricInc(MetricRequestCanceled)
		return &Error{Kind: KindCanceled, Op: op, Detail: res.Detail, Err: res.Err}
	case flows.ExecuteFailureNetwork:
		c.metricInc(MetricRequestNetworkFailure)
		return &Error{Kind: KindNetwork, Op: op, Detail: res.Detail, Err: res.Err}
	default:
		c.metricInc(MetricRequestRemoteRejected)
		return &Error{Kind: KindRemoteRejected, Op: op, Detail: res.Detail, Err: res.Err}
	}
}

// remoteError reports a success response whose body could not be used.
func remoteError(op string, err error) *Error {
	return newError(KindRemoteRejected, op, err)
}

func (c *Client) precondition(op string, err error) *Error {
	c.metricInc(MetricPreconditionViolation)
	return preconditionError(op, err)
}

func (c *Client) notAuthenticated(op string) *Error {
	c.metricInc(MetricNotAuthenticated)
	return &Error{Kind: KindNotAuthenticated, Op: op, Detail: "not signed in"}
}

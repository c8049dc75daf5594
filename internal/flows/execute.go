package flows

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSnap/signature"
	"github.com/MrEthical07/goSnap/transport"
)

const (
	HeaderAPIKey       = "X-Api-Key"
	HeaderSignature    = "X-Request-Signature"
	HeaderRequestToken = "X-Request-Token"
	HeaderRequestID    = "X-Request-Id"
	HeaderUserAgent    = "User-Agent"
	HeaderContentType  = "Content-Type"
)

// ExecuteFailureKind classifies execute failures for root-level mapping.
type ExecuteFailureKind int

const (
	ExecuteFailureNone ExecuteFailureKind = iota
	ExecuteFailureNotAuthenticated
	ExecuteFailureMissingCredentials
	ExecuteFailureBuild
	ExecuteFailureNetwork
	ExecuteFailureCanceled
	ExecuteFailureRemote
)

// Descriptor is the flow-local request descriptor.
type Descriptor struct {
	Endpoint          string
	Method            string
	Params            map[string]string
	File              *transport.File
	SigningContext    string
	RequiresSignature bool
	RequiresSession   bool
	Binary            bool
}

// CacheKey returns the signing-context key the descriptor's token is cached under.
func (d Descriptor) CacheKey() string {
	if d.SigningContext != "" {
		return d.SigningContext
	}
	return d.Endpoint
}

// Credentials are the process-wide signing credentials.
type Credentials struct {
	APIKey    string
	APISecret string
	UserAgent string
}

// SessionView is the slice of session state a request needs.
type SessionView struct {
	SignedIn  bool
	Username  string
	AuthToken string
}

// TokenCache is the cache capability used by the pipeline.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string) error
}

// NormalizeFunc rewrites a response body and/or its preliminary error.
type NormalizeFunc func(ctx context.Context, endpoint string, resp *transport.Response, err error) ([]byte, error)

// ExecuteDeps captures request pipeline dependencies.
type ExecuteDeps struct {
	Credentials     Credentials
	BaseURL         string
	RequestTokenTTL time.Duration

	Session      func() SessionView
	Cache        TokenCache
	Transport    transport.Transport
	Normalize    NormalizeFunc
	Now          func() time.Time
	NewRequestID func() string

	OnCacheHit   func(key string)
	OnCacheMiss  func(key string)
	OnCacheError func(key string, err error)
}

// ExecuteResult carries the final body or failure metadata.
type ExecuteResult struct {
	Failure  ExecuteFailureKind
	Detail   string
	Err      error
	Response *transport.Response
	Body     []byte
}

// RemoteError is the preliminary error produced by default response
// interpretation.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return "remote rejected request with status " + strconv.Itoa(e.StatusCode)
	}
	return e.Detail
}

// RunExecute builds, signs, dispatches and interprets one request.
func RunExecute(ctx context.Context, d Descriptor, deps ExecuteDeps) ExecuteResult {
	view := SessionView{}
	if deps.Session != nil {
		view = deps.Session()
	}
	if d.RequiresSession && (!view.SignedIn || view.AuthToken == "") {
		return ExecuteResult{Failure: ExecuteFailureNotAuthenticated, Detail: "not signed in"}
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	requestID := ""
	if deps.NewRequestID != nil {
		requestID = deps.NewRequestID()
	}

	params := make(signature.Params, len(d.Params)+3)
	for k, v := range d.Params {
		params[k] = v
	}
	if d.RequiresSession {
		ts := strconv.FormatInt(now().UnixMilli(), 10)
		params["username"] = view.Username
		params["timestamp"] = ts
		params["req_token"] = signature.Sign(signature.Params{"timestamp": ts}, view.AuthToken)
	}

	header := http.Header{}
	if deps.Credentials.UserAgent != "" {
		header.Set(HeaderUserAgent, deps.Credentials.UserAgent)
	}
	if requestID != "" {
		header.Set(HeaderRequestID, requestID)
	}

	if d.RequiresSignature {
		creds := deps.Credentials
		if creds.APIKey == "" || creds.APISecret == "" {
			return ExecuteResult{Failure: ExecuteFailureMissingCredentials, Detail: "api key and secret are required for signed requests"}
		}

		key := d.CacheKey()
		token, ok := "", false
		if deps.Cache != nil {
			var err error
			token, ok, err = deps.Cache.Get(ctx, key)
			if err != nil {
				ok = false
				if deps.OnCacheError != nil {
					deps.OnCacheError(key, err)
				}
			}
		}
		if ok {
			if deps.OnCacheHit != nil {
				deps.OnCacheHit(key)
			}
		} else {
			if deps.OnCacheMiss != nil {
				deps.OnCacheMiss(key)
			}
			token = signature.Sign(params, creds.APISecret)
			if deps.Cache != nil {
				if err := deps.Cache.Set(ctx, key, token); err != nil && deps.OnCacheError != nil {
					deps.OnCacheError(key, err)
				}
			}
		}

		ttl := deps.RequestTokenTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		reqToken, err := signature.RequestToken(creds.APISecret, key, token, requestID, now(), ttl)
		if err != nil {
			return ExecuteResult{Failure: ExecuteFailureBuild, Detail: "request token", Err: err}
		}

		header.Set(HeaderAPIKey, creds.APIKey)
		header.Set(HeaderSignature, token)
		header.Set(HeaderRequestToken, reqToken)
	}

	req, err := buildRequest(deps.BaseURL, d, params, header)
	if err != nil {
		return ExecuteResult{Failure: ExecuteFailureBuild, Detail: "build request", Err: err}
	}

	resp, err := deps.Transport.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return ExecuteResult{Failure: ExecuteFailureCanceled, Detail: "request canceled", Err: err}
		}
		return ExecuteResult{Failure: ExecuteFailureNetwork, Detail: err.Error(), Err: err}
	}
	if resp == nil {
		return ExecuteResult{Failure: ExecuteFailureNetwork, Detail: "empty transport response"}
	}

	var remoteErr error
	if rerr := Interpret(resp, d.Binary); rerr != nil {
		remoteErr = rerr
	}

	body := resp.Body
	if deps.Normalize != nil {
		body, remoteErr = deps.Normalize(ctx, d.Endpoint, resp, remoteErr)
	}

	if remoteErr != nil {
		detail := remoteErr.Error()
		var re *RemoteError
		if errors.As(remoteErr, &re) {
			detail = re.Detail
		}
		return ExecuteResult{Failure: ExecuteFailureRemote, Detail: detail, Err: remoteErr, Response: resp, Body: body}
	}

	return ExecuteResult{Response: resp, Body: body}
}

func buildRequest(baseURL string, d Descriptor, params signature.Params, header http.Header) (*transport.Request, error) {
	method := d.Method
	if method == "" {
		method = http.MethodPost
	}
	target := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(d.Endpoint, "/")

	req := &transport.Request{Method: method, URL: target, Header: header}
	switch {
	case d.File != nil:
		body, contentType, err := transport.EncodeMultipart(params, *d.File)
		if err != nil {
			return nil, err
		}
		req.Body = body
		header.Set(HeaderContentType, contentType)
	case method == http.MethodGet:
		if len(params) > 0 {
			values := make(url.Values, len(params))
			for k, v := range params {
				values.Set(k, v)
			}
			req.URL += "?" + values.Encode()
		}
	default:
		req.Body = transport.EncodeForm(params)
		header.Set(HeaderContentType, transport.FormContentType)
	}
	return req, nil
}

type statusBody struct {
	Logged  *bool           `json:"logged"`
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// Interpret applies the default success/failure interpretation to resp.
// Binary bodies are judged by status code alone.
func Interpret(resp *transport.Response, binary bool) *RemoteError {
	var sb statusBody
	parsed := false
	if !binary && len(resp.Body) > 0 {
		parsed = json.Unmarshal(resp.Body, &sb) == nil
	}

	detail := func() string {
		switch {
		case sb.Error != "":
			return sb.Error
		case sb.Message != "":
			return sb.Message
		case !resp.OK():
			return http.StatusText(resp.StatusCode)
		default:
			return "request rejected"
		}
	}

	if !resp.OK() {
		return &RemoteError{StatusCode: resp.StatusCode, Detail: detail()}
	}
	if !parsed {
		return nil
	}
	if sb.Logged != nil && !*sb.Logged {
		return &RemoteError{StatusCode: resp.StatusCode, Detail: detail()}
	}
	if len(sb.Status) > 0 {
		if code, err := strconv.Atoi(string(sb.Status)); err == nil && code < 0 {
			return &RemoteError{StatusCode: resp.StatusCode, Detail: detail()}
		}
	}
	return nil
}

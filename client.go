package goSnap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSnap/session"
	"github.com/MrEthical07/goSnap/tokencache"
	"github.com/MrEthical07/goSnap/transport"
	"github.com/hashicorp/go-hclog"
)

// State is the authentication state of a Client.
type State int

const (
	StateSignedOut State = iota
	StateAuthenticating
	StateSignedIn
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateSignedIn:
		return "signed_in"
	default:
		return "signed_out"
	}
}

// Client owns one session and one token cache and dispatches signed requests
// to the service. Client methods are safe for concurrent use; lifecycle
// changes are serialized and a lifecycle result that lands after a newer
// change is discarded.
type Client struct {
	config       Config
	transport    transport.Transport
	cache        tokencache.Cache
	normalizer   Normalizer
	logger       hclog.Logger
	audit        *auditDispatcher
	metrics      *Metrics
	now          func() time.Time
	newRequestID func() string

	mu         sync.RWMutex
	state      State
	generation uint64
	session    session.Session
	geometry   session.Geometry

	// Device tokens outlive sessions and are resent on every sign-in.
	deviceToken1i string
	deviceToken1v string
}

var sharedClient atomic.Pointer[Client]

// SharedClient returns the client registered with SetSharedClient, or nil.
func SharedClient() *Client {
	return sharedClient.Load()
}

// SetSharedClient registers c as the process default client.
func SetSharedClient(c *Client) {
	sharedClient.Store(c)
}

// State returns the current authentication state.
func (c *Client) State() State {
	if c == nil {
		return StateSignedOut
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsSignedIn reports whether the client holds a signed-in session with a
// non-empty auth token.
func (c *Client) IsSignedIn() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateSignedIn && c.session.AuthToken != ""
}

// Session returns a copy of the current session.
func (c *Client) Session() session.Session {
	if c == nil {
		return session.Session{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Geometry returns the screen geometry reported on session updates.
func (c *Client) Geometry() session.Geometry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.geometry
}

// SetScreenIdiom replaces the reported geometry with the preset of idiom.
func (c *Client) SetScreenIdiom(idiom session.ScreenIdiom) {
	geometry := session.GeometryFor(idiom)
	c.mu.Lock()
	c.geometry = geometry
	c.mu.Unlock()
	c.logger.Debug("screen geometry changed", "width", geometry.ScreenSize.Width, "height", geometry.ScreenSize.Height)
}

// SetDeviceTokens sets the device token pair sent with the next sign-in.
func (c *Client) SetDeviceTokens(token1i, token1v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceToken1i = token1i
	c.deviceToken1v = token1v
	if c.state == StateSignedIn {
		c.session = c.session.WithDeviceTokens(token1i, token1v)
	}
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// Close stops the audit dispatcher after delivering buffered events. It
// does not sign out.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.shutdown()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.droppedCount()
}

// MetricsSnapshot returns a copy of the client counters and latency
// histogram. It is empty when metrics are disabled.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// clearCache empties the token cache. Backend errors are logged; the cache
// entries then expire by TTL.
func (c *Client) clearCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("token cache clear failed", "error", err)
		c.metricInc(MetricSignatureCacheError)
		return
	}
	c.metricInc(MetricTokenCacheCleared)
}

// beginLifecycle starts a lifecycle change and returns its generation.
func (c *Client) beginLifecycle(next State) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = next
	c.session = session.Session{}
	return c.generation
}

// abandon returns the client to SignedOut if gen is still current.
func (c *Client) abandon(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.state = StateSignedOut
	c.session = session.Session{}
}

// commit installs s as the signed-in session if gen is still current.
func (c *Client) commit(gen uint64, s session.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.session = s
	c.state = StateSignedIn
	if s.DeviceToken1i != "" {
		c.deviceToken1i = s.DeviceToken1i
	}
	if s.DeviceToken1v != "" {
		c.deviceToken1v = s.DeviceToken1v
	}
	return true
}

func (c *Client) deviceTokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceToken1i, c.deviceToken1v
}

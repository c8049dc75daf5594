package goSnap

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSnap/session"
)

// Config is the full client configuration. Build validates a private copy.
type Config struct {
	Credentials CredentialsConfig
	Endpoint    EndpointConfig
	Session     SessionConfig
	Cache       CacheConfig
	Screen      ScreenConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
CREDENTIALS CONFIG
====================================
*/

// CredentialsConfig holds the process-wide signing credentials. They are
// read-only after Build; signed requests fail with KindMissingCredentials
// when APIKey or APISecret is empty.
type CredentialsConfig struct {
	APIKey    string
	APISecret string
	UserAgent string
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig locates the service and bounds each request.
type EndpointConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RequestTokenTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig governs session restoration and phone registration defaults.
type SessionConfig struct {
	// RestoreFreshness bounds the age of an auth token accepted by RestoreSession.
	RestoreFreshness   time.Duration
	DefaultCountryCode string
}

// CacheConfig sizes the signature token cache.
type CacheConfig struct {
	TokenTTL    time.Duration
	RedisPrefix string
}

// ScreenConfig selects the device geometry reported on session updates.
type ScreenConfig struct {
	Idiom session.ScreenIdiom
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration Build starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Endpoint: EndpointConfig{
			Timeout:         30 * time.Second,
			RequestTokenTTL: time.Minute,
		},
		Session: SessionConfig{
			RestoreFreshness:   time.Hour,
			DefaultCountryCode: "1",
		},
		Cache: CacheConfig{
			TokenTTL:    time.Hour,
			RedisPrefix: "gosnap:sig",
		},
		Screen: ScreenConfig{
			Idiom: session.ScreenIdiomIPhone5,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate returns the first configuration error found, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(c.Endpoint.BaseURL) == "" {
		return errors.New("Endpoint.BaseURL must be set")
	}
	u, err := url.Parse(c.Endpoint.BaseURL)
	if err != nil || u.Host == "" {
		return errors.New("Endpoint.BaseURL must be an absolute URL")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.New("Endpoint.BaseURL scheme must be http or https")
	}
	if c.Endpoint.Timeout < 0 {
		return errors.New("Endpoint.Timeout must be >= 0")
	}
	if c.Endpoint.RequestTokenTTL <= 0 {
		return errors.New("Endpoint.RequestTokenTTL must be > 0")
	}

	if (c.Credentials.APIKey == "") != (c.Credentials.APISecret == "") {
		return errors.New("Credentials.APIKey and Credentials.APISecret must be set together")
	}

	if c.Session.RestoreFreshness <= 0 {
		return errors.New("Session.RestoreFreshness must be > 0")
	}
	cc := c.Session.DefaultCountryCode
	if cc == "" || len(cc) > 3 || strings.Trim(cc, "0123456789") != "" {
		return errors.New("Session.DefaultCountryCode must be 1-3 digits")
	}

	if c.Cache.TokenTTL <= 0 {
		return errors.New("Cache.TokenTTL must be > 0")
	}
	if strings.TrimSpace(c.Cache.RedisPrefix) == "" {
		return errors.New("Cache.RedisPrefix must not be empty")
	}

	switch c.Screen.Idiom {
	case session.ScreenIdiomIPhone4, session.ScreenIdiomIPhone5, session.ScreenIdiomIPhone6, session.ScreenIdiomIPhone6Plus:
	default:
		return errors.New("Screen.Idiom is not a known screen idiom")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	return nil
}

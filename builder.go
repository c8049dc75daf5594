package goSnap

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSnap/internal"
	"github.com/MrEthical07/goSnap/session"
	"github.com/MrEthical07/goSnap/tokencache"
	"github.com/MrEthical07/goSnap/transport"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

// Builder collects options for a Client. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	transport  transport.Transport
	cache      tokencache.Cache
	normalizer Normalizer
	logger     hclog.Logger
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentials sets the process-wide signing credentials used by every signed request.
func (b *Builder) WithCredentials(apiKey, apiSecret, userAgent string) *Builder {
	b.config.Credentials = CredentialsConfig{
		APIKey:    apiKey,
		APISecret: apiSecret,
		UserAgent: userAgent,
	}
	return b
}

// WithBaseURL sets the service root every endpoint is resolved against.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Endpoint.BaseURL = baseURL
	return b
}

// WithTransport replaces the default net/http transport.
func (b *Builder) WithTransport(t transport.Transport) *Builder {
	b.transport = t
	return b
}

// WithTokenCache installs a caller-supplied cache. The client clears it on
// every session change for as long as it is attached.
func (b *Builder) WithTokenCache(cache tokencache.Cache) *Builder {
	b.cache = cache
	return b
}

// WithRedis backs the token cache with Redis when no explicit cache is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNormalizer installs the response normalizer.
func (b *Builder) WithNormalizer(n Normalizer) *Builder {
	b.normalizer = n
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink. Audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled turns the in-process counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms enables the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithScreenIdiom selects the initial device geometry.
func (b *Builder) WithScreenIdiom(idiom session.ScreenIdiom) *Builder {
	b.config.Screen.Idiom = idiom
	return b
}

// Build may return an error when configuration validation fails or the builder was already used.
// Build performs no network I/O.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	cache := b.cache
	switch {
	case cache != nil:
	case b.redis != nil:
		cache = tokencache.NewRedis(b.redis, cfg.Cache.RedisPrefix, cfg.Cache.TokenTTL)
	default:
		cache = tokencache.NewMemory(cfg.Cache.TokenTTL)
	}

	tr := b.transport
	if tr == nil {
		tr = transport.NewHTTP(cfg.Endpoint.Timeout)
	}

	client := &Client{
		config:       cfg,
		transport:    tr,
		cache:        cache,
		normalizer:   b.normalizer,
		logger:       logger,
		metrics:      NewMetrics(cfg.Metrics),
		now:          time.Now,
		newRequestID: internal.NewRequestID,
		geometry:     session.GeometryFor(cfg.Screen.Idiom),
	}
	client.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)

	logger.Debug("client built", "base_url", cfg.Endpoint.BaseURL, "redis_cache", b.cache == nil && b.redis != nil)

	b.built = true
	return client, nil
}

package klingkit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Builder assembles a [Client]. A Builder is single-use.
type Builder struct {
	config     Config
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	now        func() time.Time
	requestID  func() string

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithHTTPClient overrides the HTTP client. Its own Timeout wins over Config.Timeout.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithTokenSource overrides how bearer tokens are obtained. Credential fields in the
// configuration are then ignored.
func (b *Builder) WithTokenSource(ts TokenSource) *Builder {
	b.tokens = ts
	return b
}

// WithLogger sets the structured logger. Logging is discarded by default.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock sets the clock used to sign tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRequestIDFunc sets the generator for the X-Request-Id header.
func (b *Builder) WithRequestIDFunc(fn func() string) *Builder {
	b.requestID = fn
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}

	tokens := b.tokens
	if tokens == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if cfg.GatewayMode() {
			tokens = StaticToken(cfg.GatewayToken)
		} else {
			ts, err := NewSignedTokenSource(cfg.AccessKey, cfg.SecretKey, b.now)
			if err != nil {
				return nil, err
			}
			tokens = ts
		}
	} else {
		if err := cfg.validateTransport(); err != nil {
			return nil, err
		}
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	requestID := b.requestID
	if requestID == nil {
		requestID = uuid.NewString
	}

	b.built = true
	return &Client{
		config:    cfg,
		http:      httpClient,
		tokens:    tokens,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		requestID: requestID,
	}, nil
}

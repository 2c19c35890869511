package klingkit

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Kling API endpoint used in direct mode.
	DefaultBaseURL = "https://api-beijing.klingai.com"
	// DefaultGatewayURL is the local gateway used in gateway mode.
	DefaultGatewayURL = "http://localhost:3000"
	// GatewayPathPrefix is prepended to every route when calling through the gateway.
	GatewayPathPrefix = "/kling"
	// DefaultTimeout bounds each request end to end.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "klingkit/1"
	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes = 8 << 20
)

// Config defines how a [Client] reaches the API and authenticates.
//
// Exactly one credential mode must be set: AccessKey+SecretKey signs a fresh token per
// request (direct mode); GatewayToken is sent as-is (gateway mode).
type Config struct {
	BaseURL      string
	PathPrefix   string
	AccessKey    string
	SecretKey    string
	GatewayToken string
	Timeout      time.Duration
	UserAgent    string
	// MaxResponseBytes caps the response body; larger bodies fail with [ErrResponseTooLarge].
	MaxResponseBytes int64
	Metrics          MetricsConfig
}

// MetricsConfig toggles in-process request metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a direct-mode configuration without credentials.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		MaxResponseBytes: DefaultMaxResponseBytes,
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// GatewayConfig returns a gateway-mode configuration for token.
func GatewayConfig(baseURL, token string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.PathPrefix = GatewayPathPrefix
	cfg.GatewayToken = token
	return cfg
}

// GatewayMode reports whether the static gateway token is used instead of signed tokens.
func (c Config) GatewayMode() bool {
	return strings.TrimSpace(c.GatewayToken) != ""
}

// Validate checks the configuration without touching the network.
func (c Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return err
	}
	return c.validateCredentials()
}

func (c Config) validateTransport() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base url scheme must be http or https", ErrInvalidConfig)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base url host is required", ErrInvalidConfig)
	}
	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		return fmt.Errorf("%w: path prefix must start with /", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if c.MaxResponseBytes < 0 {
		return fmt.Errorf("%w: max response bytes must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) validateCredentials() error {
	hasPair := strings.TrimSpace(c.AccessKey) != "" || strings.TrimSpace(c.SecretKey) != ""
	if c.GatewayMode() {
		if hasPair {
			return fmt.Errorf("%w: gateway token and access/secret key are mutually exclusive", ErrInvalidConfig)
		}
		return nil
	}
	if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("%w: access key and secret key are required", ErrInvalidCredential)
	}
	return nil
}

func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + strings.TrimRight(c.PathPrefix, "/") + path
}

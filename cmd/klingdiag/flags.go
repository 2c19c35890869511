package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	klingkit "github.com/MrEthical07/klingkit"
	"github.com/MrEthical07/klingkit/internal/logging"
)

var errMissingCredentials = errors.New("missing credentials: set --ak/--sk (KLING_AK/KLING_SK) or --token (KLING_GATEWAY_TOKEN)")

// stringList collects a repeatable, comma-separated flag.
type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// clientFlags are shared by every command that talks to the API.
type clientFlags struct {
	baseURL string
	ak      string
	sk      string
	token   string
	timeout time.Duration
	metrics bool
	otel    bool
}

func (c *clientFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.baseURL, "base-url", "", "API base URL (default KLING_BASE_URL, KLING_GATEWAY_URL in gateway mode, or the public endpoint)")
	fs.StringVar(&c.ak, "ak", "", "access key (default KLING_AK)")
	fs.StringVar(&c.sk, "sk", "", "secret key (default KLING_SK)")
	fs.StringVar(&c.token, "token", "", "gateway token; selects gateway mode (default KLING_GATEWAY_TOKEN)")
	fs.DurationVar(&c.timeout, "timeout", klingkit.DefaultTimeout, "request timeout")
	fs.BoolVar(&c.metrics, "metrics", false, "print client metrics in Prometheus text format to stderr")
	fs.BoolVar(&c.otel, "otel-metrics", false, "collect client metrics through OpenTelemetry and print them to stderr")
}

// config resolves flags and environment into a client configuration.
func (c *clientFlags) config(getenv func(string) string) (klingkit.Config, error) {
	token := firstNonEmpty(c.token, getenv("KLING_GATEWAY_TOKEN"))
	if token != "" {
		base := firstNonEmpty(c.baseURL, getenv("KLING_GATEWAY_URL"), klingkit.DefaultGatewayURL)
		cfg := klingkit.GatewayConfig(base, token)
		cfg.Timeout = c.timeout
		return cfg, nil
	}

	cfg := klingkit.DefaultConfig()
	cfg.BaseURL = firstNonEmpty(c.baseURL, getenv("KLING_BASE_URL"), klingkit.DefaultBaseURL)
	cfg.AccessKey = firstNonEmpty(c.ak, getenv("KLING_AK"))
	cfg.SecretKey = firstNonEmpty(c.sk, getenv("KLING_SK"))
	cfg.Timeout = c.timeout
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return klingkit.Config{}, errMissingCredentials
	}
	return cfg, nil
}

func (c *clientFlags) client(e env) (*klingkit.Client, error) {
	cfg, err := c.config(e.getenv)
	if err != nil {
		return nil, err
	}
	logger := logging.FromEnv("klingdiag", e.getenv).Build(e.stderr)
	client, err := klingkit.New().WithConfig(cfg).WithLogger(logger).Build()
	if err != nil {
		return nil, err
	}
	printMode(e.stdout, client.Config())
	return client, nil
}

func printMode(w io.Writer, cfg klingkit.Config) {
	if cfg.GatewayMode() {
		fmt.Fprintf(w, "Mode: gateway (%s, token %s)\n", cfg.BaseURL, klingkit.Mask(cfg.GatewayToken, 4))
		return
	}
	fmt.Fprintf(w, "Mode: direct (%s, access key %s, secret key %s)\n",
		cfg.BaseURL, klingkit.Mask(cfg.AccessKey, 4), klingkit.Mask(cfg.SecretKey, 0))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

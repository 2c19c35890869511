package klingkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// RequestIDHeader carries the client-generated id of each call.
const RequestIDHeader = "X-Request-Id"

// Client issues authenticated calls against the Kling API or a proxying gateway.
//
// Every call signs a fresh token, sends exactly one HTTP request and never retries.
// A Client is safe for concurrent use.
type Client struct {
	config    Config
	http      *http.Client
	tokens    TokenSource
	logger    *slog.Logger
	metrics   *Metrics
	requestID func() string
}

// CallOptions shapes a single call.
type CallOptions struct {
	// ID is appended as a trailing path segment on routes that accept one.
	ID    string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// MetricsSnapshot returns the client's current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// URL resolves the absolute request URL for op without sending anything.
func (c *Client) URL(op Operation, opts CallOptions) (string, error) {
	route, err := RouteFor(op)
	if err != nil {
		return "", err
	}
	return c.resolve(op, route, opts)
}

// Call performs op.
//
// When a response body was received, Call returns it even if the error is non-nil, so the
// payload can be reported verbatim. Remote failures are [*APIError]; bodies that are not the
// JSON envelope are [*MalformedResponseError]; failed exchanges match [ErrTransport].
func (c *Client) Call(ctx context.Context, op Operation, opts CallOptions) (*Response, error) {
	route, err := RouteFor(op)
	if err != nil {
		return nil, err
	}
	target, err := c.resolve(op, route, opts)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrInvalidRequest, err)
		}
		body = bytes.NewReader(raw)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.metrics.Inc(MetricTokenFailure)
		return nil, err
	}
	c.metrics.Inc(MetricTokenIssued)

	req, err := http.NewRequestWithContext(ctx, route.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrInvalidRequest, err)
	}
	requestID := c.requestID()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(RequestIDHeader, requestID)

	log := c.logger.With(
		"operation", string(op),
		"method", route.Method,
		"path", req.URL.Path,
		"request_id", requestID,
	)
	log.Debug("kling request started")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		latency := time.Since(start)
		c.metrics.Observe(MetricRequestLatency, latency)
		c.metrics.Inc(MetricTransportError)
		log.Warn("kling request failed", "error", err, "latency", latency)
		return nil, &transportError{op: op, timeout: isTimeout(ctx, err), err: err}
	}
	defer resp.Body.Close()

	limit := c.config.MaxResponseBytes
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	latency := time.Since(start)
	c.metrics.Observe(MetricRequestLatency, latency)
	if err != nil {
		c.metrics.Inc(MetricTransportError)
		log.Warn("kling response read failed", "status", resp.StatusCode, "error", err, "latency", latency)
		return nil, &transportError{op: op, timeout: isTimeout(ctx, err), err: err}
	}

	out := &Response{
		Operation:  op,
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Body:       raw,
	}

	if int64(len(raw)) > limit {
		out.Body = raw[:limit]
		c.metrics.Inc(MetricMalformedResponse)
		log.Warn("kling response too large", "status", resp.StatusCode, "limit", limit, "latency", latency)
		return out, &MalformedResponseError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Raw:        out.Body,
			Err:        fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit),
		}
	}

	if err := decodeEnvelope(raw, &out.Envelope); err != nil {
		c.metrics.Inc(MetricMalformedResponse)
		log.Warn("kling response malformed", "status", resp.StatusCode, "bytes", len(raw), "latency", latency)
		return out, &MalformedResponseError{Operation: op, StatusCode: resp.StatusCode, Raw: raw, Err: err}
	}

	if !out.Succeeded() {
		c.metrics.Inc(MetricRemoteError)
		apiErr := &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Code:       -1,
			Message:    out.Message(),
			RequestID:  out.Envelope.RequestID,
		}
		if out.Envelope.Code != nil {
			apiErr.Code = *out.Envelope.Code
		}
		log.Warn("kling request rejected",
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"message", apiErr.Message,
			"remote_request_id", apiErr.RequestID,
			"latency", latency,
		)
		return out, apiErr
	}

	c.metrics.Inc(MetricRequestSuccess)
	log.Info("kling request succeeded",
		"status", resp.StatusCode,
		"remote_request_id", out.Envelope.RequestID,
		"latency", latency,
	)
	return out, nil
}

func (c *Client) resolve(op Operation, route Route, opts CallOptions) (string, error) {
	path := route.Path
	if opts.ID != "" {
		if !route.AcceptsID {
			return "", fmt.Errorf("%w: %s does not take an id", ErrInvalidRequest, op)
		}
		path += "/" + url.PathEscape(opts.ID)
	}
	target := c.config.endpoint(path)
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}
	return target, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Copyright © 2024 The runcoliru authors

// Package coliru is a client for the Coliru online compiler. The service
// takes a single shell command, runs it in a fresh sandbox, and returns
// everything the command printed as plain text.
package coliru

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luthersystems/runcoliru/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultURL is the compile endpoint of the public Coliru instance.
const DefaultURL = "https://coliru.stacked-crooked.com/compile"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps the output read back from the service.
const maxResponseBytes = 8 << 20

// TruncatedMarker ends output that was cut at the response size limit.
// Diagnostics past that point are missing.
const TruncatedMarker = "\n[output truncated]\n"

// Client sends commands to a Coliru compile endpoint.
type Client struct {
	URL        string
	HTTPClient *http.Client

	// MaxTries is the number of attempts made for a retryable failure.
	// Values below 1 mean a single attempt.
	MaxTries int

	// BackOff returns the retry schedule. Nil means exponential backoff.
	BackOff func() backoff.BackOff

	Logger *zap.Logger
	Tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets the compile endpoint.
func WithURL(url string) Option {
	return func(c *Client) { c.URL = url }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient = &http.Client{Timeout: d} }
}

// WithMaxTries sets the number of attempts for retryable failures.
func WithMaxTries(n int) Option {
	return func(c *Client) { c.MaxTries = n }
}

// WithBackOff sets the retry schedule.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.BackOff = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// WithTracer sets the tracer used for compile spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.Tracer = t }
}

// New returns a client for the public Coliru instance modified by opts.
func New(opts ...Option) *Client {
	c := &Client{
		URL:        DefaultURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxTries:   1,
		Logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("coliru: HTTP status %d", e.StatusCode)
	}
	return fmt.Sprintf("coliru: HTTP status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type request struct {
	Cmd string `json:"cmd"`
}

// Compile runs cmd on the service and returns its combined output. A
// command that fails to compile is not an error: the compiler's complaints
// are part of the returned output.
func (c *Client) Compile(ctx context.Context, cmd string) (string, error) {
	body, err := json.Marshal(request{Cmd: cmd})
	if err != nil {
		return "", err
	}

	ctx, span := tracing.StartClientSpan(ctx, c.Tracer, "coliru.compile",
		attribute.String("coliru.url", c.URL),
		attribute.Int("coliru.command_bytes", len(cmd)),
	)
	defer span.End()

	attempt := 0
	op := func() (string, error) {
		attempt++
		c.logger().Debug("compile request",
			zap.String("url", c.URL),
			zap.Int("attempt", attempt),
			zap.Int("commandBytes", len(cmd)))
		out, status, err := c.post(ctx, body)
		if status != 0 {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if err == nil {
			return out, nil
		}
		c.logger().Warn("compile request failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
		if se, ok := err.(*StatusError); ok && !se.Temporary() {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries()),
	)
	span.SetAttributes(attribute.Int("coliru.attempts", attempt))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.Int("coliru.output_bytes", len(out)))
	return out, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", 0, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	truncated := len(b) > maxResponseBytes
	if truncated {
		b = b[:maxResponseBytes]
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}
	if truncated {
		c.logger().Warn("compile output truncated",
			zap.Int("limitBytes", maxResponseBytes))
		return string(b) + TruncatedMarker, resp.StatusCode, nil
	}
	return string(b), resp.StatusCode, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Client) maxTries() uint {
	if c.MaxTries < 1 {
		return 1
	}
	return uint(c.MaxTries)
}

func (c *Client) backOff() backoff.BackOff {
	if c.BackOff != nil {
		return c.BackOff()
	}
	return backoff.NewExponentialBackOff()
}

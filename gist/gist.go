// Copyright © 2024 The runcoliru authors

// Package gist loads playground files from GitHub gists.
package gist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luthersystems/runcoliru/source"
	"github.com/luthersystems/runcoliru/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultAPIURL is the GitHub REST API root.
const DefaultAPIURL = "https://api.github.com"

var (
	ErrNotFound        = errors.New("gist not found")
	ErrEmpty           = errors.New("gist contains no files")
	ErrInvalidResponse = errors.New("invalid response format from GitHub API")
	ErrInvalidRef      = errors.New("invalid gist reference")
)

var idRegexp = regexp.MustCompile(`^[0-9a-fA-F]{20,32}$`)

// ParseRef extracts a gist id from a bare id or a gist URL such as
// https://gist.github.com/user/0123456789abcdef0123456789abcdef.
func ParseRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if idRegexp.MatchString(ref) {
		return ref, nil
	}
	s := ref
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host != "gist.github.com" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := parts[len(parts)-1]
	if len(parts) > 2 || !idRegexp.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return id, nil
}

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Client reads gists from the GitHub API.
type Client struct {
	APIURL     string
	HTTPClient *http.Client
	Token      string
	MaxTries   int
	BackOff    func() backoff.BackOff
	Logger     *zap.Logger
	Tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

func WithAPIURL(u string) Option            { return func(c *Client) { c.APIURL = u } }
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.HTTPClient = hc } }
func WithToken(token string) Option         { return func(c *Client) { c.Token = token } }
func WithMaxTries(n int) Option             { return func(c *Client) { c.MaxTries = n } }
func WithLogger(l *zap.Logger) Option       { return func(c *Client) { c.Logger = l } }
func WithTracer(t trace.Tracer) Option      { return func(c *Client) { c.Tracer = t } }

// WithBackOff sets the retry schedule.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.BackOff = fn }
}

// New returns a client for api.github.com modified by opts.
func New(opts ...Option) *Client {
	c := &Client{
		APIURL:     DefaultAPIURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxTries:   1,
		Logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gistFile struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gistResponse struct {
	Files map[string]*gistFile `json:"files"`
}

// Load fetches the gist with the given id and returns its files ordered by
// name.
func (c *Client) Load(ctx context.Context, id string) ([]source.File, error) {
	ctx, span := tracing.StartClientSpan(ctx, c.Tracer, "gist.load",
		attribute.String("gist.id", id))
	defer span.End()

	files, err := c.load(ctx, id)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("gist.files", len(files)))
	return files, nil
}

func (c *Client) load(ctx context.Context, id string) ([]source.File, error) {
	endpoint := strings.TrimSuffix(c.APIURL, "/") + "/gists/" + url.PathEscape(id)
	body, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var resp gistResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.Files == nil {
		return nil, ErrInvalidResponse
	}
	if len(resp.Files) == 0 {
		return nil, ErrEmpty
	}

	names := make([]string, 0, len(resp.Files))
	for name := range resp.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]source.File, 0, len(names))
	for _, name := range names {
		f := resp.Files[name]
		if f == nil {
			return nil, ErrInvalidResponse
		}
		content := f.Content
		if f.Truncated && f.RawURL != "" {
			raw, err := c.get(ctx, f.RawURL, "text/plain")
			if err != nil {
				return nil, fmt.Errorf("fetch %s: %w", name, err)
			}
			content = string(raw)
		}
		files = append(files, source.File{Name: name, Content: content})
	}
	return files, nil
}

func (c *Client) get(ctx context.Context, u, accept string) ([]byte, error) {
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		c.logger().Debug("gist request", zap.String("url", u), zap.Int("attempt", attempt))
		b, err := c.do(ctx, u, accept)
		if err == nil {
			return b, nil
		}
		c.logger().Warn("gist request failed", zap.String("url", u), zap.Int("attempt", attempt), zap.Error(err))
		var se *StatusError
		if errors.Is(err, ErrNotFound) || (errors.As(err, &se) && se.StatusCode < 500) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	b, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries()),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return b, err
}

func (c *Client) do(ctx context.Context, u, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", accept)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
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

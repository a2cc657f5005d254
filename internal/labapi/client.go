// Package labapi is the client for the remote lab service REST API.
package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"labdesk/internal/models"
)

const (
	DefaultTimeout = 15 * time.Second
	maxErrorBody   = 1 << 20
	htmlAccept     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	log    zerolog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse lab api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("lab api url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		tokens: StaticToken(""),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin is the service root without its /api prefix; uploaded files are
// served from there.
func (c *Client) Origin() string {
	u := *c.base
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api")
	u.RawQuery = ""
	return strings.TrimRight(u.String(), "/")
}

// ResolveAssetURL turns a stored file path into something an <img> can load.
func (c *Client) ResolveAssetURL(p string) string {
	if p == "" || strings.HasPrefix(p, "data:image") || strings.HasPrefix(p, "http") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.Origin() + p
}

type request struct {
	method      string
	endpoint    string // metrics label, e.g. "/tests/:id"
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observe(r.method, r.endpoint, 0, time.Since(start))
		c.log.Warn().Err(err).Str("method", r.method).Str("path", r.path).Msg("lab api request failed")
		return nil, fmt.Errorf("%s %s: %w", r.method, r.endpoint, err)
	}
	observe(r.method, r.endpoint, resp.StatusCode, time.Since(start))
	c.log.Debug().Str("method", r.method).Str("path", r.path).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("lab api")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string          `json:"message"`
		Patient *models.Patient `json:"patient"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
		apiErr.Patient = payload.Patient
	}
	return apiErr
}

// call sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) call(ctx context.Context, method, endpoint, path string, query url.Values, in, out any) error {
	r := request{method: method, endpoint: endpoint, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		r.body = bytes.NewReader(b)
		r.contentType = "application/json"
	}

	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Package apiclient talks to the CMS REST API. Every call takes the caller's
// credential explicitly; the client never reads ambient auth state.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const maxErrorBody = 64 << 10

// Credential is the bearer token of the admin making the call. An empty
// token sends no Authorization header.
type Credential struct {
	Token string
}

func (c Credential) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token, TokenType: "Bearer"})
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout bounds every JSON call. Streams are bounded by the caller's
// context only.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// httpFor wraps the base transport with the credential's bearer header.
func (c *Client) httpFor(cred Credential) *http.Client {
	if cred.Token == "" {
		return c.httpClient
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: cred.TokenSource(),
			Base:   c.httpClient.Transport,
		},
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Timeout:       c.httpClient.Timeout,
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send issues the request and turns error statuses into *APIError. The
// caller owns the body of a successful response.
func (c *Client) send(ctx context.Context, cred Credential, resource string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpFor(cred).Do(req.WithContext(ctx))
	if err != nil {
		c.metrics.observe(resource, req.Method, 0, time.Since(start))
		c.logger.Warn("api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	c.metrics.observe(resource, req.Method, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := parseAPIError(resp, body)
		c.logger.Warn("api request rejected",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}
	return resp, nil
}

// doJSON sends an optional JSON body and returns the raw response body.
func (c *Client) doJSON(ctx context.Context, cred Credential, resource, method, path string, query url.Values, body interface{}) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", resource, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(ctx, cred, resource, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", resource, err)
	}
	return raw, nil
}

// decodeList accepts a bare array or an object wrapping the array under one
// of keys, "items" or "data".
func decodeList[T any](raw []byte, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	var out []T
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return out, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode list envelope: %w", err)
	}
	for _, key := range append(keys, "items", "data") {
		value, ok := envelope[key]
		if !ok {
			continue
		}
		value = bytes.TrimSpace(value)
		if len(value) > 0 && value[0] == '{' {
			if nested, err := decodeList[T](value, keys...); err == nil {
				return nested, nil
			}
			continue
		}
		if len(value) == 0 || value[0] != '[' {
			continue
		}
		if err := json.Unmarshal(value, &out); err != nil {
			return nil, fmt.Errorf("decode list %q: %w", key, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("decode list: no array under %v", keys)
}

// decodeOne accepts the record itself or an object wrapping it under one of
// keys, "item" or "data".
func decodeOne[T any](raw []byte, keys ...string) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		for _, key := range append(keys, "item", "data") {
			value, ok := envelope[key]
			if !ok {
				continue
			}
			value = bytes.TrimSpace(value)
			if len(value) == 0 || value[0] != '{' {
				continue
			}
			if err := json.Unmarshal(value, &out); err != nil {
				return out, fmt.Errorf("decode %q: %w", key, err)
			}
			return out, nil
		}
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

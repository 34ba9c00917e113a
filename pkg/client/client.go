package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alexbotov/commsdk/pkg/auth"
	"github.com/alexbotov/commsdk/pkg/signing"
	"go.uber.org/zap"
)

// Client is a communications platform API client. It is safe for concurrent
// use, including concurrent credential rotation through UpdateAuth.
type Client struct {
	config     *Config
	httpClient *http.Client
	auth       *auth.Collection
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey registers the account key and secret in both header and query
// forms, leaving each endpoint free to pick the one it accepts.
func WithAPIKey(key, secret string) Option {
	return func(c *Client) {
		c.auth.Add(auth.NewAPIKeyHeader(key, secret))
		c.auth.Add(auth.NewAPIKeyQuery(key, secret))
	}
}

// WithSignatureSecret enables signed requests.
func WithSignatureSecret(key, secret string, hash signing.HashType) Option {
	return func(c *Client) {
		c.auth.Add(auth.NewSignature(key, secret, hash))
	}
}

// WithAuthMethod registers an already constructed method, typically an
// *auth.JWT.
func WithAuthMethod(m auth.Method) Option {
	return func(c *Client) {
		c.auth.Add(m)
	}
}

// WithHTTPClient replaces the default HTTP client. A nil client is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a new API client. A nil config uses DefaultConfig.
func NewClient(config *Config, opts ...Option) *Client {
	cfg := DefaultConfig()
	if config != nil {
		cfg = &Config{}
		*cfg = *config
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.RESTBaseURL == "" {
		cfg.RESTBaseURL = DefaultRESTBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		auth: auth.NewCollection(),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientWithHTTPClient creates a new API client with a custom HTTP client
func NewClientWithHTTPClient(config *Config, httpClient *http.Client, opts ...Option) *Client {
	return NewClient(config, append(opts, WithHTTPClient(httpClient))...)
}

// Auth exposes the configured authentication methods.
func (c *Client) Auth() *auth.Collection {
	return c.auth
}

// UpdateAuth adds m, replacing any configured method of the same kind.
// Requests already in flight keep the method they selected.
func (c *Client) UpdateAuth(m auth.Method) {
	c.auth.Add(m)
}

type host int

const (
	hostAPI host = iota
	hostREST
)

type encoding int

const (
	encodeQuery encoding = iota
	encodeForm
	encodeJSON
)

// endpoint describes one API operation and the credentials it accepts.
type endpoint struct {
	method   string
	host     host
	path     string
	accepts  []auth.Kind
	encoding encoding
}

func (c *Client) baseURL(h host) string {
	if h == hostREST {
		return c.config.RESTBaseURL
	}
	return c.config.APIBaseURL
}

// do selects credentials, sends the request and decodes the JSON response
// into out. Only transport failures are retried; each attempt is built and
// authenticated from scratch so signatures and tokens are never reused.
func (c *Client) do(ctx context.Context, ep endpoint, in any, out any) error {
	method, err := c.auth.Acceptable(ep.accepts...)
	if err != nil {
		return err
	}
	c.log.Debug("selected auth method",
		zap.String("path", ep.path),
		zap.Stringer("auth", method.Kind()))

	body, query, err := encodeRequest(ep.encoding, in)
	if err != nil {
		return err
	}

	var resp *http.Response
	var lastErr error
	retryCount := c.config.RetryCount
	if retryCount <= 0 {
		retryCount = 1
	}

	for i := 0; i < retryCount; i++ {
		req, err := c.newRequest(ctx, ep, body, query)
		if err != nil {
			return err
		}
		if err := method.Apply(req); err != nil {
			return fmt.Errorf("failed to apply %s auth: %w", method.Kind(), err)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			lastErr = redact(err)
			if ctx.Err() != nil {
				break
			}
			c.log.Debug("request attempt failed",
				zap.String("path", ep.path),
				zap.Int("attempt", i+1),
				zap.Error(lastErr))
			continue
		}
		break
	}

	if resp == nil {
		return fmt.Errorf("request failed after %d retries: %w", retryCount, lastErr)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeProblem(resp.StatusCode, respBody)
		c.log.Debug("api error",
			zap.String("path", ep.path),
			zap.Int("status", resp.StatusCode),
			zap.String("type", apiErr.Type))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, ep endpoint, body []byte, query url.Values) (*http.Request, error) {
	u := c.baseURL(ep.host) + ep.path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, ep.method, u, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	switch {
	case body == nil:
	case ep.encoding == encodeForm:
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case ep.encoding == encodeJSON:
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	return req, nil
}

func encodeRequest(enc encoding, in any) (body []byte, query url.Values, err error) {
	switch enc {
	case encodeJSON:
		body, err = json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	case encodeForm:
		values, _ := in.(url.Values)
		body = []byte(values.Encode())
	case encodeQuery:
		query, _ = in.(url.Values)
	}
	return body, query, nil
}

// decodeProblem builds an APIError from an RFC 7807 body, falling back to
// the status text when the body is not a problem document.
func decodeProblem(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr = &APIError{}
	}
	apiErr.Status = status
	if apiErr.Title == "" {
		apiErr.Title = http.StatusText(status)
	}
	return apiErr
}

// redact strips the query string from transport errors, which would
// otherwise echo api_secret or sig.
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if u, perr := url.Parse(ue.URL); perr == nil && u.RawQuery != "" {
		u.RawQuery = ""
		return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
	}
	return err
}

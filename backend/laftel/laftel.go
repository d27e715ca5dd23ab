// Package laftel is a client for the private Laftel web API used by the site itself.
package laftel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Laftel API base URL
	DefaultBaseURL = "https://api.laftel.net"

	// SessionCookie is the laftel.net cookie that carries the session token
	SessionCookie = "at_amss-Co"
)

// TokenSource provides the session token for each request
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token. An empty value yields an AuthError.
type StaticToken string

// Token implements TokenSource
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", &backend.AuthError{Reason: "no session token configured"}
	}
	return string(t), nil
}

// Config holds Laftel connection settings
type Config struct {
	BaseURL    string // Override for testing
	Tokens     TokenSource
	Timeout    time.Duration
	MaxRetries int
	Stats      *ratelimit.Stats
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client talks to the Laftel API
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *ratelimit.Client
	log     *zap.Logger
}

// New creates a new Laftel client
func New(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("laftel token source is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		tokens:  cfg.Tokens,
		http: ratelimit.NewClient(ratelimit.Config{
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
			EnableJitter: true,
			Stats:        cfg.Stats,
			Logger:       log,
			HTTPClient:   cfg.HTTPClient,
		}),
		log: log,
	}, nil
}

// BaseURL returns the API base URL in use
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated request. A nil body sends a GET-style request without payload.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req := ratelimit.Request{
		Method: method,
		URL:    c.baseURL + path,
		Header: http.Header{},
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req.Body = payload
	}

	c.log.Debug("laftel request", zap.String("method", method), zap.String("path", path))
	return c.http.Do(ctx, req)
}

// call performs a request and decodes a successful JSON response into dst (which may be nil)
func (c *Client) call(ctx context.Context, op, method, path string, body, dst any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		if backend.IsAuth(err) {
			return err
		}
		return &backend.RemoteError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		remoteErr := &backend.RemoteError{Op: op, StatusCode: resp.StatusCode}
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			remoteErr.Err = fmt.Errorf("%s", msg)
		}
		return remoteErr
	}

	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &backend.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return nil
}

// Package remote talks to the hosted topic bus and key/value cache over
// plain request/response HTTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config addresses a cache on the remote service.
type Config struct {
	BaseURL   string
	CacheName string
	APIKey    string
}

// TransportError reports a failed call to the remote service: either the
// request did not complete (Err set) or the server answered with a non-2xx
// status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsStatus reports whether err is a TransportError carrying the given HTTP
// status code.
func IsStatus(err error, code int) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == code
}

// Client issues authenticated calls against a single cache.
type Client struct {
	cfg    Config
	http   Doer
	logger zerolog.Logger
}

// New creates a Client. A nil doer uses http.DefaultClient.
func New(cfg Config, doer Doer, logger zerolog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: doer, logger: logger}
}

// CacheName returns the cache the client is bound to.
func (c *Client) CacheName() string {
	return c.cfg.CacheName
}

func (c *Client) endpoint(kind, name string) string {
	return c.cfg.BaseURL + "/" + kind + "/" + url.PathEscape(c.cfg.CacheName) + "/" + url.PathEscape(name)
}

// do sends a request and returns the response for 2xx statuses. Any other
// status is returned as a *TransportError after the body is drained.
func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

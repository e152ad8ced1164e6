package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is applied by CacheSet when ttl is not positive.
const DefaultTTL = time.Hour

// CacheGet reads key. A missing key returns found=false and no error.
func (c *Client) CacheGet(ctx context.Context, key string) (value string, found bool, err error) {
	target := c.endpoint("cache", key)
	resp, err := c.do(ctx, "cache get", http.MethodGet, target, nil, nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, &TransportError{Op: "cache get", URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(data), true, nil
}

// CacheSet stores value under key for ttl, rounded down to whole seconds.
func (c *Client) CacheSet(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	target := c.endpoint("cache", key) + "?ttl_seconds=" + strconv.FormatInt(seconds, 10)
	resp, err := c.do(ctx, "cache set", http.MethodPut, target, strings.NewReader(value), nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// CacheDelete removes key. Deleting a missing key succeeds.
func (c *Client) CacheDelete(ctx context.Context, key string) error {
	target := c.endpoint("cache", key)
	resp, err := c.do(ctx, "cache delete", http.MethodDelete, target, nil, nil)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil
		}
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

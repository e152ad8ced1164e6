package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hay-kot/reactions/internal/core/messaging"
)

// Publish posts body to topic. It makes exactly one attempt.
func (c *Client) Publish(ctx context.Context, topic string, body []byte) error {
	target := c.endpoint("topics", topic)
	resp, err := c.do(ctx, "publish", http.MethodPost, target, bytes.NewReader(body), http.Header{
		"Content-Type": {"application/json"},
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	c.logger.Debug().Str("topic", topic).Int("bytes", len(body)).Msg("published")
	return nil
}

// Poll issues one long-poll read of topic. The server holds the request
// until items are available or its own timeout elapses; ctx bounds the
// client side.
func (c *Client) Poll(ctx context.Context, topic string) (messaging.TopicResponse, error) {
	target := c.endpoint("topics", topic)
	resp, err := c.do(ctx, "poll", http.MethodGet, target, nil, http.Header{
		"Accept": {"application/json"},
	})
	if err != nil {
		return messaging.TopicResponse{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var out messaging.TopicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return messaging.TopicResponse{}, nil
		}
		return messaging.TopicResponse{}, &TransportError{Op: "poll", URL: target, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

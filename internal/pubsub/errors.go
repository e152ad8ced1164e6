package pubsub

import (
	"errors"
	"fmt"
)

// ErrMaxAttempts is reported by Subscription.Err when a topic failed too many
// consecutive rounds and the subscription was torn down.
var ErrMaxAttempts = errors.New("pubsub: reconnect attempts exhausted")

// ErrNoTopics is returned when subscribing to an empty topic list.
var ErrNoTopics = errors.New("pubsub: no topics")

// MalformedMessageError describes a topic item that could not be turned into
// a reaction. These are logged and dropped, never returned to callers.
type MalformedMessageError struct {
	Topic string
	Text  string
	Err   error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message on topic %q: %v", e.Topic, e.Err)
}

func (e *MalformedMessageError) Unwrap() error { return e.Err }

// Package live wires the delivery layer into the operations the CLI and TUI
// expose: sending a reaction, tallying, resetting and sender management.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/reactions/internal/core/config"
	"github.com/hay-kot/reactions/internal/core/reaction"
)

// QRCodeEndpoint renders a QR image for the data query parameter.
const QRCodeEndpoint = "https://api.qrserver.com/v1/create-qr-code/"

// ErrOnCooldown is wrapped by CooldownError.
var ErrOnCooldown = errors.New("sender is on cooldown")

// CooldownError is returned by Send while the device must wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining.Round(100*time.Millisecond))
}

func (e *CooldownError) Unwrap() error { return ErrOnCooldown }

// Publisher sends reactions and reset signals. *pubsub.Transport satisfies it.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, r reaction.Reaction) error
	PublishReset(ctx context.Context, sessionID string) error
}

// Limiter is the device cooldown. *cooldown.Manager satisfies it.
type Limiter interface {
	SenderID() string
	ResetSenderID() string
	IsOnCooldown(senderID string) bool
	SetCooldown(senderID string)
	RemainingTime(senderID string) time.Duration
	Expiration() time.Time
}

// Tally stores per-session counters. *counter.Store satisfies it.
type Tally interface {
	Counts(ctx context.Context, sessionID string) reaction.Counters
	Increment(ctx context.Context, sessionID string, emoji reaction.EmojiType) (reaction.Counters, error)
	Reset(ctx context.Context, sessionID string) error
}

// SenderStatus describes the device identity and its cooldown.
type SenderStatus struct {
	SenderID  string        `json:"senderId"`
	Remaining time.Duration `json:"remaining"`
	Expires   time.Time     `json:"expires,omitzero"`
}

// Link is the audience entry point for a session.
type Link struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// Service orchestrates reaction operations.
type Service struct {
	config    *config.Config
	publisher Publisher
	cooldown  Limiter
	counters  Tally
	log       zerolog.Logger
}

// New creates a new Service.
func New(cfg *config.Config, publisher Publisher, limiter Limiter, counters Tally, log zerolog.Logger) *Service {
	return &Service{
		config:    cfg,
		publisher: publisher,
		cooldown:  limiter,
		counters:  counters,
		log:       log,
	}
}

// Config returns the loaded configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// CheckSession validates sessionID against the id format and the allow list.
func (s *Service) CheckSession(sessionID string) error {
	return s.config.CheckSession(sessionID)
}

// Send publishes emoji to sessionID as this device. The cooldown starts only
// after the publish succeeds.
func (s *Service) Send(ctx context.Context, sessionID string, emoji reaction.EmojiType) (reaction.Reaction, error) {
	if err := s.CheckSession(sessionID); err != nil {
		return reaction.Reaction{}, err
	}
	if !reaction.IsValidEmojiType(string(emoji)) {
		return reaction.Reaction{}, fmt.Errorf("unknown emoji type %q", emoji)
	}

	sender := s.cooldown.SenderID()
	if s.cooldown.IsOnCooldown(sender) {
		return reaction.Reaction{}, &CooldownError{Remaining: s.cooldown.RemainingTime(sender)}
	}

	r := reaction.Reaction{EmojiType: emoji, SenderID: sender}
	if err := s.publisher.Publish(ctx, sessionID, r); err != nil {
		return reaction.Reaction{}, fmt.Errorf("send reaction: %w", err)
	}
	s.cooldown.SetCooldown(sender)

	s.log.Info().Str("session", sessionID).Str("emoji", string(emoji)).Msg("reaction sent")
	return r, nil
}

// Counts returns the tallies for sessionID.
func (s *Service) Counts(ctx context.Context, sessionID string) (reaction.Counters, error) {
	if err := s.CheckSession(sessionID); err != nil {
		return nil, err
	}
	return s.counters.Counts(ctx, sessionID), nil
}

// Tally records r against sessionID.
func (s *Service) Tally(ctx context.Context, sessionID string, r reaction.Reaction) (reaction.Counters, error) {
	return s.counters.Increment(ctx, sessionID, r.EmojiType)
}

// ResetCounts clears the tallies for sessionID and notifies reset
// subscribers.
func (s *Service) ResetCounts(ctx context.Context, sessionID string) error {
	if err := s.CheckSession(sessionID); err != nil {
		return err
	}
	if err := s.counters.Reset(ctx, sessionID); err != nil {
		return err
	}
	if err := s.publisher.PublishReset(ctx, sessionID); err != nil {
		return fmt.Errorf("counters cleared but reset signal failed: %w", err)
	}

	s.log.Info().Str("session", sessionID).Msg("counters reset")
	return nil
}

// Sender returns the device identity and cooldown state.
func (s *Service) Sender() SenderStatus {
	id := s.cooldown.SenderID()
	return SenderStatus{
		SenderID:  id,
		Remaining: s.cooldown.RemainingTime(id),
		Expires:   s.cooldown.Expiration(),
	}
}

// ResetSender mints a new device identity. The cooldown carries over.
func (s *Service) ResetSender() string {
	id := s.cooldown.ResetSenderID()
	s.log.Info().Str("sender", id).Msg("sender id reset")
	return id
}

// JoinLink builds the audience URL and QR image URL for sessionID.
func (s *Service) JoinLink(sessionID string) (Link, error) {
	if err := s.CheckSession(sessionID); err != nil {
		return Link{}, err
	}

	target := s.config.JoinURL(sessionID)
	if target == "" {
		return Link{}, fmt.Errorf("event.web_url is not configured")
	}

	q := url.Values{}
	q.Set("size", "400x400")
	q.Set("data", target)

	return Link{
		SessionID: sessionID,
		URL:       target,
		QRCodeURL: QRCodeEndpoint + "?" + q.Encode(),
	}, nil
}

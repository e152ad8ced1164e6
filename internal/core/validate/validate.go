// Package validate provides shared validation functions.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// SessionIDMinLength is the shortest accepted session identifier.
	SessionIDMinLength = 3
	// SessionIDMaxLength is the longest accepted session identifier.
	SessionIDMaxLength = 64
)

// ErrInvalidSessionID is wrapped by every ValidationError returned from
// SessionID.
var ErrInvalidSessionID = errors.New("invalid session identifier")

var (
	sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	sessionIDChars   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidationError describes why a session identifier was rejected.
type ValidationError struct {
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSessionID
}

// SessionName validates a session name is non-empty after trimming whitespace.
func SessionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// IsSessionID reports whether id is a well formed session identifier: 3-64
// characters of letters, digits, hyphens and underscores that starts and ends
// with a letter or digit.
func IsSessionID(id string) bool {
	if len(id) < SessionIDMinLength || len(id) > SessionIDMaxLength {
		return false
	}
	return sessionIDPattern.MatchString(id)
}

// DescribeSessionID returns a human readable explanation of why id is not a
// valid session identifier. It returns an empty string for valid ids.
func DescribeSessionID(id string) string {
	switch {
	case IsSessionID(id):
		return ""
	case id == "":
		return "Session ID is required. Please provide a valid session identifier."
	case len(id) < SessionIDMinLength:
		return fmt.Sprintf("Session ID is too short. It must be at least %d characters long.", SessionIDMinLength)
	case len(id) > SessionIDMaxLength:
		return fmt.Sprintf("Session ID is too long. It must be no more than %d characters long.", SessionIDMaxLength)
	case !sessionIDChars.MatchString(id):
		return "Session ID contains invalid characters. Only letters, numbers, hyphens, and underscores are allowed."
	default:
		return "Session ID must start and end with a letter or number."
	}
}

// SessionID returns a *ValidationError when id is not a valid session
// identifier.
func SessionID(id string) error {
	if reason := DescribeSessionID(id); reason != "" {
		return &ValidationError{ID: id, Reason: reason}
	}
	return nil
}

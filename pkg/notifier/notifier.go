// Package notifier delivers availability messages to a chat channel.
//
// Send returns an explicit error; callers log it and move on. Nothing here
// retries.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxMessageLength is the longest message a Discord channel accepts.
const MaxMessageLength = 2000

// ErrNotConfigured is returned when no delivery target is configured.
var ErrNotConfigured = errors.New("notifier not configured")

// Notifier delivers one message.
type Notifier interface {
	// Send delivers text. A nil error means the sink accepted it.
	Send(ctx context.Context, text string) error

	// Name returns the sink identifier.
	Name() string
}

// DeliveryError describes a rejected or failed delivery.
type DeliveryError struct {
	Sink       string
	StatusCode int    // 0 when no response was received
	Body       string // response excerpt
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("%s delivery failed: %v", e.Sink, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s delivery rejected (status %d): %s", e.Sink, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s delivery rejected (status %d)", e.Sink, e.StatusCode)
	}
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Truncate caps text at MaxMessageLength characters.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxMessageLength-1]) + "…"
}

// excerpt shortens a response body for error messages.
func excerpt(body string) string {
	const limit = 200
	if utf8.RuneCountInString(body) <= limit {
		return body
	}
	return string([]rune(body)[:limit]) + "..."
}

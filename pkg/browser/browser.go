// Package browser is the browser-automation boundary used by extractors that
// need a live page: pre-navigation script injection, navigation, native
// dialog detection and dismissal, in-page evaluation and screenshots.
//
// A Session is short-lived and exclusively owned by one check. It is never
// shared or pooled; callers must Close it exactly once on every code path.
package browser

import (
	"context"
	"errors"
	"time"
)

// Launcher starts browser sessions.
type Launcher interface {
	// Launch starts a fresh browser session.
	Launch(ctx context.Context) (Session, error)
}

// Session is one browser tab owned by a single check.
type Session interface {
	// InjectBeforeLoad registers a script that runs in every new document
	// before any page script. It must be called before Navigate.
	InjectBeforeLoad(ctx context.Context, script string) error

	// Navigate loads url. It returns early without error when a native
	// dialog opens during load, since the dialog blocks the page.
	Navigate(ctx context.Context, url string) error

	// Dialog reports the message of a currently open native dialog.
	Dialog() (message string, open bool)

	// DismissDialog accepts the open dialog.
	DismissDialog(ctx context.Context) error

	// Evaluate runs a JavaScript expression and decodes its JSON-compatible
	// result into out.
	Evaluate(ctx context.Context, expression string, out any) error

	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close tears the session down. Calling it more than once is a no-op.
	Close() error
}

// Config holds launcher configuration.
type Config struct {
	Headless   bool
	Stealth    bool   // Inject the stealth script into every session
	ChromePath string // Explicit Chrome binary; searched when empty
	UserAgent  string
	// ChromeBinaries overrides DefaultChromeBinaries for the search.
	ChromeBinaries []string
	// StartTimeout bounds browser process startup.
	StartTimeout time.Duration
}

// DefaultConfig returns the options the ticket checks run with.
func DefaultConfig() Config {
	return Config{
		Headless:     true,
		UserAgent:    defaultUserAgent,
		StartTimeout: 30 * time.Second,
	}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	// ErrNoDialog is returned by DismissDialog when nothing is open.
	ErrNoDialog = errors.New("no dialog open")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("browser session closed")
)

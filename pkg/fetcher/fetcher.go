// Package fetcher retrieves platform pages over plain HTTP for the extractors
// that work on already-rendered markup.
package fetcher

import (
	"context"
	"errors"
	"time"
)

// Fetcher abstracts page fetching.
type Fetcher interface {
	// Fetch retrieves the page at url. Non-2xx responses are errors.
	Fetch(ctx context.Context, url string) (Page, error)
}

// Page is a fetched platform page.
type Page struct {
	URL         string
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Error types for distinguishing failure reasons.
var (
	// ErrAntiBot indicates the platform answered with an anti-bot interstitial
	// instead of the event page.
	ErrAntiBot = errors.New("anti-bot protection detected")
	// ErrEmptyBody indicates a 2xx response without a body.
	ErrEmptyBody = errors.New("empty response body")
)

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (Page, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) (Page, error) {
	return f(ctx, url)
}

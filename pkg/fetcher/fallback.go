package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/ticketwatch/internal/logger"
)

// ErrNoFetcher is returned by a fallback chain with no members.
var ErrNoFetcher = errors.New("no fetcher configured")

// Named is implemented by fetchers that can identify themselves in logs.
type Named interface {
	Name() string
}

// FallbackFetcher tries each fetcher in order until one succeeds, e.g. a
// plain HTTP fetch first and a rendered browser fetch when the platform
// answers with a challenge page.
type FallbackFetcher struct {
	fetchers []Fetcher
}

// NewFallback creates a fallback chain. Nil members are ignored.
func NewFallback(fetchers ...Fetcher) *FallbackFetcher {
	var chain []Fetcher
	for _, f := range fetchers {
		if f != nil {
			chain = append(chain, f)
		}
	}
	return &FallbackFetcher{fetchers: chain}
}

// Fetch tries each fetcher in order. Context cancellation stops the chain.
func (f *FallbackFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	if len(f.fetchers) == 0 {
		return Page{}, ErrNoFetcher
	}

	var lastErr error
	var tried []string

	for _, fetcher := range f.fetchers {
		name := nameOf(fetcher)
		tried = append(tried, name)

		page, err := fetcher.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		logger.Debug("fetcher failed, trying next", "fetcher", name, "url", url, "error", err)
	}

	return Page{}, fmt.Errorf("all fetchers failed (tried: %s): %w", strings.Join(tried, ", "), lastErr)
}

// Name returns the chain name.
func (f *FallbackFetcher) Name() string {
	names := make([]string, 0, len(f.fetchers))
	for _, fetcher := range f.fetchers {
		names = append(names, nameOf(fetcher))
	}
	return "fallback(" + strings.Join(names, "->") + ")"
}

func nameOf(f Fetcher) string {
	if n, ok := f.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}

package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/fetcher"
)

// RenderFetcher fetches pages through a browser session, returning the
// markup after client-side scripts have run. It satisfies fetcher.Fetcher.
type RenderFetcher struct {
	launcher    Launcher
	settleDelay time.Duration
}

// NewRenderFetcher creates a rendered-page fetcher. settleDelay is waited
// after load before the markup is read.
func NewRenderFetcher(l Launcher, settleDelay time.Duration) *RenderFetcher {
	return &RenderFetcher{launcher: l, settleDelay: settleDelay}
}

// Name returns the fetcher identifier.
func (f *RenderFetcher) Name() string {
	return "rendered"
}

// Fetch renders url in a fresh session and returns the resulting document.
func (f *RenderFetcher) Fetch(ctx context.Context, url string) (fetcher.Page, error) {
	logger.Debug("rendered fetch starting", "url", url)

	result := fetcher.Page{
		URL:       url,
		FetchedAt: time.Now(),
	}

	session, err := f.launcher.Launch(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() { _ = session.Close() }()

	if err := session.Navigate(ctx, url); err != nil {
		return result, err
	}
	if msg, open := session.Dialog(); open {
		_ = session.DismissDialog(ctx)
		return result, fmt.Errorf("page raised a dialog: %s", msg)
	}

	if f.settleDelay > 0 {
		t := time.NewTimer(f.settleDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return result, ctx.Err()
		}
	}

	var html string
	if err := session.Evaluate(ctx, `document.documentElement.outerHTML`, &html); err != nil {
		return result, err
	}
	if strings.TrimSpace(html) == "" {
		return result, fetcher.ErrEmptyBody
	}

	result.HTML = html
	result.StatusCode = 200 // the DevTools session does not surface it
	result.ContentType = "text/html"

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result, fmt.Errorf("failed to parse content: %w", err)
	}
	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	if challenge := fetcher.DetectChallengePage(result.Title, html); challenge != "" {
		return result, fmt.Errorf("%w: %s", fetcher.ErrAntiBot, challenge)
	}

	logger.Debug("rendered fetch complete", "url", url, "html_size", len(html), "title", result.Title)
	return result, nil
}

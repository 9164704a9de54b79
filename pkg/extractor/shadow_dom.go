package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/browser"
	"github.com/jmylchreest/ticketwatch/pkg/ticket"
)

// NameTicket is the record name ShadowDOMExtractor reports under.
const NameTicket = "ticket"

// StatusWarningPrefix prefixes the status of a dialog-obstructed check.
const StatusWarningPrefix = "warning detected, treated as no availability: "

// ShadowDOMConfig configures ShadowDOMExtractor.
type ShadowDOMConfig struct {
	// Platform names screenshot files.
	Platform string

	// SettleDelay is how long to let client-side rendering finish after load.
	SettleDelay time.Duration

	// CheckTimeout bounds one whole check, browser startup included.
	CheckTimeout time.Duration

	// ScreenshotDir receives a capture when tickets are found. Empty disables
	// screenshots.
	ScreenshotDir string

	Analysis AnalysisOptions
}

// DefaultShadowDOMConfig returns the settings for the area page.
func DefaultShadowDOMConfig() ShadowDOMConfig {
	return ShadowDOMConfig{
		Platform:      "ibon",
		SettleDelay:   3 * time.Second,
		CheckTimeout:  90 * time.Second,
		ScreenshotDir: "screenshots",
		Analysis:      DefaultAnalysisOptions(),
	}
}

// ShadowDOMExtractor renders the page in a browser with closed shadow roots
// forced open, then analyses the area data found there.
type ShadowDOMExtractor struct {
	launcher browser.Launcher
	config   ShadowDOMConfig
	now      func() time.Time
}

// NewShadowDOMExtractor creates a shadow-DOM extractor.
func NewShadowDOMExtractor(l browser.Launcher, cfg ShadowDOMConfig) *ShadowDOMExtractor {
	if cfg.Platform == "" {
		cfg.Platform = DefaultShadowDOMConfig().Platform
	}
	return &ShadowDOMExtractor{
		launcher: l,
		config:   cfg,
		now:      time.Now,
	}
}

// Name returns the extractor identifier.
func (e *ShadowDOMExtractor) Name() string {
	return "shadow-dom"
}

// Extract checks url in a fresh browser session and returns exactly one
// record. The session is closed on every path.
func (e *ShadowDOMExtractor) Extract(ctx context.Context, url string) (records []ticket.Record) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("area check panicked", "url", url, "panic", r)
			records = []ticket.Record{ticket.Failed(fmt.Errorf("panic: %v", r))}
		}
	}()

	if e.config.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.CheckTimeout)
		defer cancel()
	}

	rec, err := e.check(ctx, url)
	if err != nil {
		logger.Warn("area check failed", "url", url, "error", err)
		return []ticket.Record{ticket.Failed(err)}
	}
	return []ticket.Record{rec}
}

func (e *ShadowDOMExtractor) check(ctx context.Context, url string) (ticket.Record, error) {
	session, err := e.launcher.Launch(ctx)
	if err != nil {
		return ticket.Record{}, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug("browser session close failed", "error", err)
		}
	}()

	if err := session.InjectBeforeLoad(ctx, browser.OpenShadowRootsScript); err != nil {
		return ticket.Record{}, fmt.Errorf("failed to inject shadow root script: %w", err)
	}

	if err := session.Navigate(ctx, url); err != nil {
		return ticket.Record{}, err
	}

	if rec, ok := e.dismissDialog(ctx, session, url); ok {
		return rec, nil
	}

	if e.config.SettleDelay > 0 {
		t := time.NewTimer(e.config.SettleDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ticket.Record{}, ctx.Err()
		}
	}

	// Some dialogs are raised by late page scripts.
	if rec, ok := e.dismissDialog(ctx, session, url); ok {
		return rec, nil
	}

	var snap PageSnapshot
	if err := session.Evaluate(ctx, SnapshotScript, &snap); err != nil {
		return ticket.Record{}, err
	}

	verdict := Analyze(snap, e.config.Analysis)
	logger.Info("area analysis complete",
		"url", url,
		"strategy", verdict.Strategy,
		"available", verdict.Available)

	if verdict.Available {
		e.saveScreenshot(ctx, session)
	}

	return ticket.Record{
		Name:      NameTicket,
		Status:    verdict.Message,
		Available: verdict.Available,
	}, nil
}

// dismissDialog returns the warning record when a native dialog is open.
func (e *ShadowDOMExtractor) dismissDialog(ctx context.Context, session browser.Session, url string) (ticket.Record, bool) {
	msg, open := session.Dialog()
	if !open {
		return ticket.Record{}, false
	}

	logger.Warn("page raised a dialog", "url", url, "message", msg)
	if err := session.DismissDialog(ctx); err != nil {
		logger.Debug("dialog dismissal failed", "error", err)
	}
	return ticket.Unavailable(ticket.NameSystemWarning, StatusWarningPrefix+msg), true
}

// saveScreenshot writes a capture of the page. Failures are logged only.
func (e *ShadowDOMExtractor) saveScreenshot(ctx context.Context, session browser.Session) {
	if e.config.ScreenshotDir == "" {
		return
	}

	png, err := session.Screenshot(ctx)
	if err != nil {
		logger.Warn("screenshot failed", "error", err)
		return
	}

	if err := os.MkdirAll(e.config.ScreenshotDir, 0o755); err != nil {
		logger.Warn("failed to create screenshot directory", "dir", e.config.ScreenshotDir, "error", err)
		return
	}

	name := fmt.Sprintf("%s_available_%s.png", e.config.Platform, e.now().Format("20060102_150405"))
	path := filepath.Join(e.config.ScreenshotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		logger.Warn("failed to save screenshot", "path", path, "error", err)
		return
	}

	logger.Info("screenshot saved", "path", path, "size", humanize.Bytes(uint64(len(png))))
}

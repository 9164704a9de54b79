// Package platform maps the built-in platform names to configured extractors
// and builds one scanner per enabled platform.
package platform

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jmylchreest/ticketwatch/internal/config"
	"github.com/jmylchreest/ticketwatch/internal/logger"
	"github.com/jmylchreest/ticketwatch/pkg/browser"
	"github.com/jmylchreest/ticketwatch/pkg/extractor"
	"github.com/jmylchreest/ticketwatch/pkg/fetcher"
	"github.com/jmylchreest/ticketwatch/pkg/scanner"
)

// Factory creates the extractor for one platform.
type Factory func(env *Env, pc config.PlatformConfig) (extractor.Extractor, error)

var registry = map[string]Factory{
	"tixcraft": func(env *Env, pc config.PlatformConfig) (extractor.Extractor, error) {
		opts := extractor.DefaultTableOptions()
		opts.SkipHeaderRow = pc.SkipHeaderRow
		if len(pc.SoldOut) > 0 {
			opts.SoldOutStatuses = pc.SoldOut
		}
		return extractor.NewTableExtractor(env.PageFetcher(), opts), nil
	},
	"kktix": func(env *Env, pc config.PlatformConfig) (extractor.Extractor, error) {
		return extractor.NewInlineJSONExtractor(env.PageFetcher()), nil
	},
	"ibon": func(env *Env, pc config.PlatformConfig) (extractor.Extractor, error) {
		bc := env.config.Browser
		cfg := extractor.DefaultShadowDOMConfig()
		cfg.Platform = "ibon"
		cfg.SettleDelay = bc.SettleDelay
		cfg.CheckTimeout = bc.CheckTimeout
		cfg.ScreenshotDir = bc.ScreenshotDir
		if len(pc.SoldOut) > 0 {
			cfg.Analysis.SoldOutSynonyms = pc.SoldOut
		}
		return extractor.NewShadowDOMExtractor(env.Launcher(), cfg), nil
	},
}

// New creates the extractor registered under name.
func New(name string, env *Env, pc config.PlatformConfig) (extractor.Extractor, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s (available: %s)", name, strings.Join(Available(), ", "))
	}
	return factory(env, pc)
}

// Register adds a custom platform factory.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Available returns the registered platform names, sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Env holds what the factories share: the configuration and one browser
// launcher, created on first use.
type Env struct {
	config *config.Config

	mu       sync.Mutex
	launcher browser.Launcher
	chrome   *browser.ChromeLauncher
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithLauncher replaces the Chrome launcher.
func WithLauncher(l browser.Launcher) EnvOption {
	return func(e *Env) {
		e.launcher = l
	}
}

// NewEnv creates a factory environment for cfg.
func NewEnv(cfg *config.Config, opts ...EnvOption) *Env {
	e := &Env{config: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Launcher returns the shared browser launcher.
func (e *Env) Launcher() browser.Launcher {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.launcher == nil {
		bc := e.config.Browser
		cfg := browser.DefaultConfig()
		cfg.Headless = bc.Headless
		cfg.Stealth = bc.Stealth
		cfg.ChromePath = bc.ChromePath
		cfg.ChromeBinaries = bc.ChromeBinaries
		e.chrome = browser.NewChromeLauncher(cfg)
		e.launcher = e.chrome
	}
	return e.launcher
}

// PageFetcher returns the fetcher used by the markup extractors. With
// fetch.render_fallback set, failed plain fetches are retried in the browser.
func (e *Env) PageFetcher() fetcher.Fetcher {
	static := fetcher.NewStatic(fetcher.StaticConfig{
		UserAgent: e.config.Fetch.UserAgent,
		Timeout:   e.config.Fetch.Timeout,
	})
	if !e.config.Fetch.RenderFallback {
		return static
	}
	return fetcher.NewFallback(static, browser.NewRenderFetcher(e.Launcher(), e.config.Browser.SettleDelay))
}

// Close releases the Chrome launcher if one was created.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.chrome == nil {
		return nil
	}
	err := e.chrome.Close()
	e.chrome = nil
	e.launcher = nil
	return err
}

// Scanners builds one scanner per enabled platform, in configured order.
// Platforms without events are skipped.
func Scanners(env *Env) ([]*scanner.Scanner, error) {
	cfg := env.config

	var scanners []*scanner.Scanner
	for _, name := range cfg.EnabledPlatforms() {
		pc := cfg.Platforms[name]
		if len(pc.Events) == 0 {
			logger.Warn("platform has no events, skipping", "platform", name)
			continue
		}

		ext, err := New(name, env, pc)
		if err != nil {
			return nil, err
		}

		events := make([]scanner.Event, len(pc.Events))
		for i, ev := range pc.Events {
			events[i] = scanner.Event{Name: ev.Name, URL: ev.URL}
		}

		scanners = append(scanners, scanner.New(name, events, ext, scanner.Options{
			RequestGap: cfg.Poll.RequestGap,
		}))
		logger.Debug("platform configured", "platform", name, "extractor", ext.Name(), "events", len(events))
	}
	return scanners, nil
}

package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/ticketwatch/internal/logger"
)

// ChromeLauncher starts one headless Chrome per session via chromedp.
type ChromeLauncher struct {
	config      Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

// NewChromeLauncher creates a launcher. No browser process is started until
// Launch is called.
func NewChromeLauncher(cfg Config) *ChromeLauncher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = DefaultConfig().StartTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Stealth {
		opts = append(opts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-infobars", true),
			chromedp.Flag("lang", "zh-TW,zh,en-US,en"),
		)
	}

	execPath := chromePath(cfg)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("chrome launcher created",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"chrome_path", execPath)

	return &ChromeLauncher{
		config:      cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}
}

// Launch starts a new browser process and returns its only tab.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	browserCtx, cancelBrowser := chromedp.NewContext(l.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	s := &chromeSession{
		ctx:      browserCtx,
		cancel:   cancelBrowser,
		dialogCh: make(chan struct{}, 1),
	}
	chromedp.ListenTarget(browserCtx, s.onEvent)

	// The first Run allocates the browser process and binds it to the context
	// it is given, so it must run on browserCtx itself. Startup is bounded by a
	// watchdog that is disarmed once the browser is up.
	startCtx, cancelStart := context.WithTimeout(ctx, l.config.StartTimeout)
	defer cancelStart()
	watchdog := context.AfterFunc(startCtx, cancelBrowser)

	err := chromedp.Run(browserCtx)
	if fired := !watchdog(); fired || err != nil {
		cancelBrowser()
		if fired {
			err = fmt.Errorf("%w: %v", startCtx.Err(), err)
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if l.config.Stealth {
		if err := s.InjectBeforeLoad(ctx, StealthScript); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to inject stealth script: %w", err)
		}
	}

	logger.Debug("browser session started")
	return s, nil
}

// Close shuts down the allocator and any browser it still owns.
func (l *ChromeLauncher) Close() error {
	if l.cancelAlloc != nil {
		l.cancelAlloc()
	}
	return nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	dialogCh chan struct{}

	mu         sync.Mutex
	dialogMsg  string
	dialogOpen bool
	closed     bool

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the session's tab, bounded by the caller's ctx.
// Cancelling a derived context does not close the tab; only Close does.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}

func (s *chromeSession) onEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		s.mu.Lock()
		s.dialogMsg = e.Message
		s.dialogOpen = true
		s.mu.Unlock()
		select {
		case s.dialogCh <- struct{}{}:
		default:
		}
	case *page.EventJavascriptDialogClosed:
		s.mu.Lock()
		s.dialogOpen = false
		s.mu.Unlock()
	}
}

func (s *chromeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *chromeSession) InjectBeforeLoad(ctx context.Context, script string) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, chromedp.Navigate(url))
	}()

	select {
	case err := <-done:
		if _, open := s.Dialog(); open {
			return nil
		}
		if err != nil {
			return fmt.Errorf("navigation failed: %w", err)
		}
		return nil
	case <-s.dialogCh:
		// The load is blocked behind the dialog; the goroutine finishes once
		// the dialog is dismissed or the session is closed.
		logger.Debug("dialog opened during navigation", "url", url)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chromeSession) Dialog() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogMsg, s.dialogOpen
}

func (s *chromeSession) DismissDialog(ctx context.Context) error {
	if _, open := s.Dialog(); !open {
		return ErrNoDialog
	}
	if err := s.run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
		return fmt.Errorf("failed to dismiss dialog: %w", err)
	}
	s.mu.Lock()
	s.dialogOpen = false
	s.mu.Unlock()
	return nil
}

func (s *chromeSession) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		logger.Debug("browser session closed")
	})
	return s.closeErr
}

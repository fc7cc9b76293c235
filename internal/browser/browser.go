package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/maltedev/ddtech-scraper/internal/clock"
	"github.com/playwright-community/playwright-go"
)

var (
	ErrSessionUnavailable = errors.New("browser session unavailable")
	ErrNavigationTimeout  = errors.New("navigation timed out")
	ErrNavigation         = errors.New("navigation failed")
	ErrSessionClosed      = errors.New("browser session not open")
)

// maskWebdriverScript hides navigator.webdriver from page scripts.
const maskWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

type Options struct {
	DriverDir   string
	Headless    bool
	UserAgent   string
	LoadTimeout time.Duration
	SettleDelay time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		DriverDir:   "./driver",
		Headless:    true,
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		LoadTimeout: 15 * time.Second,
		SettleDelay: 3 * time.Second,
	}
}

// LaunchArgs is the Chromium command line for the session profile.
func (o *Options) LaunchArgs() []string {
	return []string{
		"--disable-blink-features=AutomationControlled",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-logging",
		"--log-level=3",
		"--silent",
		"--user-agent=" + o.UserAgent,
	}
}

// Session owns one browser process and a single page that every navigation
// reuses. It is not safe for concurrent use.
type Session struct {
	opts   *Options
	clock  clock.Clock
	logger *slog.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func New(opts *Options, clk clock.Clock, logger *slog.Logger) *Session {
	if opts == nil {
		opts = DefaultOptions()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		opts:   opts,
		clock:  clk,
		logger: logger.With("component", "browser"),
	}
}

func (s *Session) IsOpen() bool {
	return s.page != nil
}

// EnsureOpen starts the browser if no session is live. Calling it on an open
// session does nothing.
func (s *Session) EnsureOpen(ctx context.Context) error {
	if s.IsOpen() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.opts.DriverDir != "" {
		if _, err := os.Stat(s.opts.DriverDir); err != nil {
			return fmt.Errorf("%w: driver directory %q: %v", ErrSessionUnavailable, s.opts.DriverDir, err)
		}
	}

	pw, err := playwright.Run(&playwright.RunOptions{
		DriverDirectory:     s.opts.DriverDir,
		SkipInstallBrowsers: true,
		Verbose:             false,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to start playwright: %v", ErrSessionUnavailable, err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:          playwright.Bool(s.opts.Headless),
		Args:              s.opts.LaunchArgs(),
		IgnoreDefaultArgs: []string{"--enable-automation"},
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("%w: failed to launch browser: %v", ErrSessionUnavailable, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(s.opts.UserAgent),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("%w: failed to create browser context: %v", ErrSessionUnavailable, err)
	}

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(maskWebdriverScript)}); err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("%w: failed to install init script: %v", ErrSessionUnavailable, err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("%w: failed to create page: %v", ErrSessionUnavailable, err)
	}

	s.pw = pw
	s.browser = browser
	s.context = bctx
	s.page = page

	s.logger.Info("browser session opened", "headless", s.opts.Headless)
	return nil
}

// Navigate loads url and blocks until a body element is attached or the load
// timeout elapses, then waits the settle delay so client-side rendering can
// finish.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if !s.IsOpen() {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := s.clock.Now().Add(s.opts.LoadTimeout)

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateCommit,
		Timeout:   playwright.Float(float64(s.opts.LoadTimeout.Milliseconds())),
	}); err != nil {
		return classifyNavigationError(url, err)
	}

	remaining, ok := waitBudget(deadline, s.clock.Now())
	if !ok {
		return fmt.Errorf("%w: %s: load timeout of %s exceeded", ErrNavigationTimeout, url, s.opts.LoadTimeout)
	}

	if err := s.page.Locator("body").WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(remaining.Milliseconds())),
	}); err != nil {
		return classifyNavigationError(url, err)
	}

	s.logger.Debug("page loaded, settling", "url", url, "delay", s.opts.SettleDelay)

	return s.clock.Sleep(ctx, s.opts.SettleDelay)
}

func (s *Session) PageSource() (string, error) {
	if !s.IsOpen() {
		return "", ErrSessionClosed
	}

	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	return html, nil
}

// Close tears the session down. It is a no-op on a closed session and leaves
// the Session ready for a fresh EnsureOpen.
func (s *Session) Close() error {
	if s.pw == nil && s.browser == nil && s.context == nil && s.page == nil {
		return nil
	}

	var errs []error

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	s.pw = nil
	s.browser = nil
	s.context = nil
	s.page = nil

	s.logger.Info("browser session closed")

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %w", errors.Join(errs...))
	}

	return nil
}

// waitBudget returns the time left before deadline. A budget under one
// millisecond counts as spent, since playwright treats a zero timeout as none.
func waitBudget(deadline, now time.Time) (time.Duration, bool) {
	remaining := deadline.Sub(now)
	if remaining < time.Millisecond {
		return 0, false
	}
	return remaining, true
}

func classifyNavigationError(url string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, url, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

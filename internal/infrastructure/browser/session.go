// Package browser runs the Chrome session the harvest drives, through go-rod.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"DirectoryHarvester/pkg/logger"
)

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Options configures the browser session.
type Options struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local Chrome through the launcher.
	RemoteURL string
	// BrowserBin overrides the Chrome binary used by the launcher.
	BrowserBin string
	Headless   bool
	NoSandbox  bool

	UserAgent      string
	ViewportWidth  int
	ViewportHeight int

	// NavigationTimeout bounds navigation plus the load event. Default: 60s.
	NavigationTimeout time.Duration
	// ActionTimeout bounds single element operations. Default: 10s.
	ActionTimeout time.Duration
	// SettleDelay is waited after load so client-side rendering can finish. Default: 5s.
	SettleDelay time.Duration
	// Trace logs CDP traffic and Chrome output at debug level.
	Trace bool

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1920
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 1080
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 60 * time.Second
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 10 * time.Second
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Session owns one browser and the single page the harvest works on.
type Session struct {
	opts    Options
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *Page
}

// Launch starts (or connects to) Chrome and opens a configured blank page.
// The caller must Close the session on every exit path.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts.defaults()
	log := opts.Logger
	s := &Session{opts: opts}

	wsURL := opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(opts.Headless).
			NoSandbox(opts.NoSandbox).
			Set("disable-blink-features", "AutomationControlled")
		if opts.BrowserBin != "" {
			l = l.Bin(opts.BrowserBin)
		}
		if opts.Trace {
			l = l.Logger(logger.New(log, "chrome").Writer())
		}

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("browser: launched local chrome", "headless", opts.Headless)
	} else {
		log.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if opts.Trace {
		b = b.Trace(true).Logger(logger.New(log, "rod"))
	}
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	p, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		log.Warn("browser: set viewport", "error", err)
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
		log.Warn("browser: set user agent", "error", err)
	}

	s.page = newPage(p, opts.NavigationTimeout, opts.ActionTimeout)
	return s, nil
}

// Page returns the session page.
func (s *Session) Page() *Page {
	return s.page
}

// Open navigates the session page to url and waits for client-side rendering to settle.
func (s *Session) Open(ctx context.Context, url string) (*Page, error) {
	log := s.opts.Logger
	log.Info("navigating to the page", "url", url)
	if err := s.page.Navigate(ctx, url); err != nil {
		return nil, err
	}

	if s.opts.SettleDelay > 0 {
		log.Info("waiting for dynamic content", "delay", s.opts.SettleDelay)
		if err := s.page.WaitForTimeout(ctx, s.opts.SettleDelay); err != nil {
			return nil, err
		}
	}
	return s.page, nil
}

// Close releases the page, the browser and the launched process.
func (s *Session) Close() error {
	var err error
	if s.page != nil {
		if cerr := s.page.close(); cerr != nil {
			err = fmt.Errorf("browser: close page: %w", cerr)
		}
		s.page = nil
	}
	s.cleanup()
	s.opts.Logger.Info("browser: closed")
	return err
}

func (s *Session) cleanup() {
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

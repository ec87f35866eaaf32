package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"divar-notifier/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// stableWindow is how long the network and DOM must stay quiet before a
// page counts as settled.
const stableWindow = 500 * time.Millisecond

// Common Chrome/Chromium install locations, checked in order
var browserPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// RodCapturer implements the Capturer interface using rod (headless browser)
type RodCapturer struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	cfg       config.BrowserConfig
	userAgent string
	logger    *slog.Logger
}

// NewRodCapturer launches (or connects to) Chrome and returns a capturer.
// It never downloads a browser: a missing binary is reported as an error.
func NewRodCapturer(cfg config.BrowserConfig, userAgent string, logger *slog.Logger) (*RodCapturer, error) {
	rc := &RodCapturer{
		cfg:       cfg,
		userAgent: userAgent,
		logger:    logger,
	}

	controlURL := cfg.RemoteURL
	if controlURL == "" {
		bin, err := findBrowser(cfg.Bin)
		if err != nil {
			return nil, err
		}

		l := launcher.New().
			Bin(bin).
			Headless(true).
			Set("disable-blink-features", "AutomationControlled").
			NoSandbox(true).
			Leakless(false). // Disable leakless to avoid antivirus issues
			Set("disable-dev-shm-usage").
			Set("disable-gpu").
			Set("no-first-run").
			Set("no-default-browser-check").
			Set("disable-extensions").
			Set("disable-background-timer-throttling").
			Set("disable-renderer-backgrounding").
			Set("disable-backgrounding-occluded-windows").
			Set("disable-breakpad").
			Set("disable-sync").
			Set("disable-translate").
			Set("mute-audio").
			Set("no-zygote").
			Set("disable-features", "TranslateUI,BlinkGenPropertyTrees")

		controlURL, err = l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser %s: %w", bin, err)
		}
		rc.launcher = l
		logger.Info("Launched headless browser", "bin", bin)
	} else {
		logger.Info("Connecting to remote browser", "url", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if rc.launcher != nil {
			rc.launcher.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	rc.browser = browser

	return rc, nil
}

// findBrowser returns the configured binary or the first installed one
func findBrowser(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("browser binary %s: %w", configured, err)
		}
		return configured, nil
	}

	for _, path := range browserPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}

	return "", errors.New("no Chrome or Chromium installation found")
}

// Available reports whether the browser is still connected
func (rc *RodCapturer) Available() bool { return rc.browser != nil }

// Close closes the browser and removes the launcher's profile directory
func (rc *RodCapturer) Close() error {
	var err error
	if rc.browser != nil {
		err = rc.browser.Close()
		rc.browser = nil
	}
	if rc.launcher != nil {
		rc.launcher.Cleanup()
		rc.launcher = nil
	}
	return err
}

// Capture opens a fresh incognito context for url, renders it and returns
// a full-page PNG. The context is disposed before returning, whatever
// happened in between.
func (rc *RodCapturer) Capture(ctx context.Context, url string) (img []byte, err error) {
	if rc.browser == nil {
		return nil, ErrUnavailable
	}

	// rod reports some CDP failures by panicking
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("panic while capturing %s: %v", url, r)
		}
	}()

	incognito, err := rc.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to open browser context: %w", err)
	}
	defer func() {
		if cerr := incognito.Close(); cerr != nil {
			rc.logger.Warn("Failed to close browser context", "url", url, "error", cerr)
		}
	}()

	page, err := rc.newPage(incognito)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             rc.cfg.ViewportWidth,
		Height:            rc.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	if rc.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rc.userAgent}); err != nil {
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	nav := page.Timeout(rc.cfg.NavigationTimeout)
	if err := nav.Navigate(url); err != nil {
		nav.CancelTimeout()
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if err := nav.WaitLoad(); err != nil {
		nav.CancelTimeout()
		return nil, fmt.Errorf("failed to load: %w", err)
	}
	nav.CancelTimeout()

	// Best effort: a page that keeps polling never settles, capture it anyway
	idle := page.Timeout(rc.cfg.IdleTimeout)
	if err := idle.WaitStable(stableWindow); err != nil {
		rc.logger.Warn("Page did not settle within timeout, capturing anyway", "url", url, "timeout", rc.cfg.IdleTimeout, "error", err)
	}
	idle.CancelTimeout()

	img, err = page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	return img, nil
}

func (rc *RodCapturer) newPage(b *rod.Browser) (*rod.Page, error) {
	if rc.cfg.Stealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{})
}

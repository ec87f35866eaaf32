// Package scraper captures full-page snapshots of listing pages with a
// headless browser. Whether a browser is usable is decided once, by
// Detect, and callers receive either a working Capturer or Disabled.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"divar-notifier/config"
)

// ErrUnavailable is returned by Disabled.Capture
var ErrUnavailable = errors.New("headless browser unavailable")

// Capturer interface defines the contract for snapshot implementations
type Capturer interface {
	// Available reports whether captures can be attempted at all
	Available() bool
	// Capture renders url and returns a full-page PNG
	Capture(ctx context.Context, url string) ([]byte, error)
	// Close releases the browser
	Close() error
}

// Disabled is the Capturer used when no browser could be started
type Disabled struct {
	Reason error
}

// Available always reports false
func (d Disabled) Available() bool { return false }

// Capture fails with ErrUnavailable, wrapping Reason when set
func (d Disabled) Capture(ctx context.Context, url string) ([]byte, error) {
	if d.Reason != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, d.Reason)
	}
	return nil, ErrUnavailable
}

// Close is a no-op
func (d Disabled) Close() error { return nil }

// Detect resolves the snapshot capability once at startup
func Detect(cfg config.BrowserConfig, userAgent string, logger *slog.Logger) Capturer {
	if !cfg.Enabled {
		logger.Info("Snapshot capture disabled by configuration")
		return Disabled{Reason: errors.New("disabled by configuration")}
	}

	rc, err := NewRodCapturer(cfg, userAgent, logger)
	if err != nil {
		logger.Warn("Headless browser not available, snapshots will be skipped", "error", err)
		return Disabled{Reason: err}
	}
	return rc
}

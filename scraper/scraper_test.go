package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"divar-notifier/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisabledCapturer(t *testing.T) {
	d := Disabled{Reason: errors.New("no chrome")}

	if d.Available() {
		t.Error("Disabled.Available() = true")
	}
	img, err := d.Capture(context.Background(), "https://divar.ir/v/x")
	if img != nil {
		t.Error("Disabled.Capture() returned an image")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Disabled.Capture() error = %v, want ErrUnavailable", err)
	}
	if !strings.Contains(err.Error(), "no chrome") {
		t.Errorf("error %q does not carry the reason", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Disabled.Close() error = %v", err)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		cfg        func() config.BrowserConfig
		wantReason string
	}{
		{
			name: "disabled by configuration",
			cfg: func() config.BrowserConfig {
				c := config.GetDefaultConfig().Browser
				c.Enabled = false
				return c
			},
			wantReason: "disabled by configuration",
		},
		{
			name: "configured binary missing",
			cfg: func() config.BrowserConfig {
				c := config.GetDefaultConfig().Browser
				c.Bin = filepath.Join(t.TempDir(), "no-such-chrome")
				return c
			},
			wantReason: "no-such-chrome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Detect(tt.cfg(), config.DefaultUserAgent, discard())
			d, ok := c.(Disabled)
			if !ok {
				c.Close()
				t.Fatalf("Detect() = %T, want Disabled", c)
			}
			if d.Available() {
				t.Error("Available() = true")
			}
			if d.Reason == nil || !strings.Contains(d.Reason.Error(), tt.wantReason) {
				t.Errorf("Reason = %v, want mention of %q", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestRodCapturerWithoutBrowser(t *testing.T) {
	rc := &RodCapturer{logger: discard()}
	if rc.Available() {
		t.Error("Available() = true without a browser")
	}
	if _, err := rc.Capture(context.Background(), "https://divar.ir/v/x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Capture() error = %v, want ErrUnavailable", err)
	}
	if err := rc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"divar-notifier/config"

	"github.com/go-rod/rod/lib/proto"
)

// A listing page that never goes quiet: it polls the server and grows
// the DOM every 100ms.
const pollingPage = `<html><body><h1>Listing</h1><div id="feed"></div>
<script>
setInterval(function () {
	fetch('/poll?t=' + Date.now());
	var p = document.createElement('p');
	p.textContent = Date.now();
	document.getElementById('feed').appendChild(p);
}, 100);
</script></body></html>`

type listingSite struct {
	mu         sync.Mutex
	visits     int
	withCookie int
}

func (s *listingSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/listing" {
		fmt.Fprint(w, "ok")
		return
	}

	s.mu.Lock()
	s.visits++
	if _, err := r.Cookie("seen"); err == nil {
		s.withCookie++
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "seen", Value: "1", Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, pollingPage)
}

func browserContexts(t *testing.T, rc *RodCapturer) int {
	t.Helper()
	res, err := proto.TargetGetBrowserContexts{}.Call(rc.browser)
	if err != nil {
		t.Fatalf("TargetGetBrowserContexts: %v", err)
	}
	return len(res.BrowserContextIDs)
}

func TestRodCapturerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser integration in short mode")
	}
	if _, err := findBrowser(""); err != nil {
		t.Skipf("no browser installed: %v", err)
	}

	cfg := config.GetDefaultConfig().Browser
	cfg.NavigationTimeout = 15 * time.Second
	cfg.IdleTimeout = time.Second

	var logs bytes.Buffer
	rc, err := NewRodCapturer(cfg, config.DefaultUserAgent, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Skipf("browser could not be started: %v", err)
	}
	defer rc.Close()

	site := &listingSite{}
	srv := httptest.NewServer(site)
	defer srv.Close()

	baseline := browserContexts(t, rc)

	for i := 0; i < 2; i++ {
		start := time.Now()
		img, err := rc.Capture(context.Background(), srv.URL+"/listing")
		if err != nil {
			t.Fatalf("capture %d: %v", i+1, err)
		}
		if !bytes.HasPrefix(img, []byte("\x89PNG")) {
			t.Errorf("capture %d is not a PNG", i+1)
		}
		if took := time.Since(start); took > cfg.NavigationTimeout+cfg.IdleTimeout+5*time.Second {
			t.Errorf("capture %d took %v", i+1, took)
		}
	}

	if !strings.Contains(logs.String(), "capturing anyway") {
		t.Errorf("unsettled page not reported: %s", logs.String())
	}

	site.mu.Lock()
	visits, withCookie := site.visits, site.withCookie
	site.mu.Unlock()
	if visits != 2 {
		t.Errorf("listing visited %d times, want 2", visits)
	}
	if withCookie != 0 {
		t.Errorf("%d visits carried a cookie from an earlier capture", withCookie)
	}

	down := httptest.NewServer(http.NotFoundHandler())
	unreachable := down.URL + "/listing"
	down.Close()

	if img, err := rc.Capture(context.Background(), unreachable); err == nil {
		t.Errorf("Capture(unreachable) returned %d bytes and no error", len(img))
	}

	if got := browserContexts(t, rc); got != baseline {
		t.Errorf("browser contexts = %d after captures, want %d", got, baseline)
	}
}

// Package pipeline runs one notification pass: extract listing links,
// snapshot and deliver each listing when a browser is available, then
// deliver a dated summary of all links.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"divar-notifier/config"
	"divar-notifier/jalali"
	"divar-notifier/models"
	"divar-notifier/scraper"
	"divar-notifier/telegram"

	"github.com/google/uuid"
)

// LinkExtractor finds listing URLs on an index page
type LinkExtractor interface {
	Extract(pageURL string, maxCount int) []string
}

// Notifier delivers photos and texts to the destination chat
type Notifier interface {
	SendImage(photo telegram.Photo, caption string) bool
	SendText(text string) bool
}

// Pipeline sequences one run
type Pipeline struct {
	extractor LinkExtractor
	capturer  scraper.Capturer
	notifier  Notifier
	source    config.SourceConfig
	runCfg    config.RunConfig
	loc       *time.Location
	now       func() time.Time
	sleep     func(time.Duration)
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the time source used for the summary header.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSleep replaces time.Sleep for the pause between listings.
func WithSleep(sleep func(time.Duration)) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithOutput sets where the discovered links are printed. Default os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// New creates a Pipeline. A nil capturer is treated as an unavailable browser.
func New(cfg *config.Config, extractor LinkExtractor, capturer scraper.Capturer, notifier Notifier, logger *slog.Logger, opts ...Option) *Pipeline {
	if capturer == nil {
		capturer = scraper.Disabled{}
	}

	loc, approx := jalali.LoadLocation(cfg.Run.TimeZone, cfg.Run.FallbackOffset)
	if approx {
		logger.Warn("Time zone not found, using a fixed offset; daylight saving is not modelled",
			"zone", cfg.Run.TimeZone, "offset", cfg.Run.FallbackOffset)
	}

	p := &Pipeline{
		extractor: extractor,
		capturer:  capturer,
		notifier:  notifier,
		source:    cfg.Source,
		runCfg:    cfg.Run,
		loc:       loc,
		now:       time.Now,
		sleep:     time.Sleep,
		out:       os.Stdout,
		logger:    logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// run is the state of one pass; it is dropped when Run returns
type run struct {
	links     []string
	snapshots map[models.SnapshotID]*models.Snapshot
	report    models.Report
	logger    *slog.Logger
}

// Run executes one pass. It never fails: every problem is logged and
// reflected in the returned report.
func (p *Pipeline) Run(ctx context.Context) models.Report {
	id := uuid.NewString()
	r := &run{
		snapshots: make(map[models.SnapshotID]*models.Snapshot),
		report:    models.Report{RunID: id},
		logger:    p.logger.With("run_id", id),
	}

	r.links = p.extractor.Extract(p.source.URL, p.source.MaxLinks)
	r.report.Links = r.links
	if len(r.links) == 0 {
		r.logger.Info("No links to show. Nothing to do.")
		r.report.Outcome = models.OutcomeNoLinks
		return r.report
	}

	p.printLinks(r.links)

	if p.capturer.Available() {
		p.captureAll(ctx, r)
		r.report.Outcome = models.OutcomeCompleted
	} else {
		r.logger.Warn("Headless browser not available, skipping snapshots. " +
			"Install Chromium (e.g. apt-get install -y chromium) or set browser.bin / BROWSER_BIN.")
		r.report.Outcome = models.OutcomeNoBrowser
	}

	r.report.SummarySent = p.sendSummary(r)

	if n := len(r.snapshots); n > 0 {
		r.logger.Warn("Discarding undelivered snapshots", "count", n)
		r.report.Discarded = n
		clear(r.snapshots)
	}

	r.logger.Info("Run finished",
		"outcome", r.report.Outcome,
		"links", len(r.links),
		"captured", r.report.Captured,
		"delivered", r.report.Delivered,
		"failed", r.report.Failed,
		"summary_sent", r.report.SummarySent)

	return r.report
}

func (p *Pipeline) printLinks(links []string) {
	fmt.Fprintf(p.out, "\nFirst %d ad links:\n\n", len(links))
	for i, link := range links {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, link)
	}
}

// captureAll snapshots and delivers each listing in order. A failing
// listing is logged and skipped.
func (p *Pipeline) captureAll(ctx context.Context, r *run) {
	total := len(r.links)
	r.logger.Info("Capturing listing snapshots", "count", total)

	for i, url := range r.links {
		if i > 0 && p.runCfg.ListingPause > 0 {
			p.sleep(p.runCfg.ListingPause)
		}

		id := models.SnapshotID(i + 1)
		log := r.logger.With("listing", fmt.Sprintf("%d/%d", i+1, total), "url", url)

		log.Info("Navigating")
		img, err := p.capturer.Capture(ctx, url)
		if err != nil {
			log.Error("Failed to capture", "error", err)
			r.report.Failed++
			continue
		}
		r.snapshots[id] = &models.Snapshot{ID: id, URL: url, Image: img}
		r.report.Captured++
		log.Info("Snapshot captured", "snapshot", id.FileName(), "bytes", len(img))

		if !p.deliver(r, id) {
			log.Error("Failed to send snapshot to Telegram", "snapshot", id.FileName())
			r.report.Failed++
		}
	}
}

// deliver sends a stored snapshot and drops it from the run on success
func (p *Pipeline) deliver(r *run, id models.SnapshotID) bool {
	snap, ok := r.snapshots[id]
	if !ok {
		return false
	}

	photo := telegram.Photo{Name: id.FileName(), Data: snap.Image}
	if !p.notifier.SendImage(photo, snap.URL) {
		return false
	}

	delete(r.snapshots, id)
	r.report.Delivered++
	return true
}

// Summary composes the final message for links at time t
func (p *Pipeline) Summary(links []string, t time.Time) string {
	lines := make([]string, len(links))
	for i, link := range links {
		lines[i] = fmt.Sprintf("%d. %s", i+1, link)
	}

	header := fmt.Sprintf("%s (%s ):", p.runCfg.SummaryTitle, jalali.Stamp(t.In(p.loc)))
	return header + "\n\n" + strings.Join(lines, "\n\n")
}

func (p *Pipeline) sendSummary(r *run) bool {
	text := p.Summary(r.links, p.now())

	sent := true
	for _, part := range telegram.SplitMessage(text, telegram.MaxMessageLength) {
		if !p.notifier.SendText(part) {
			sent = false
		}
	}

	if !sent {
		r.logger.Error("Failed to send final URL list to Telegram")
	}
	return sent
}

package fetcher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements the Fetcher interface using colly
type CollyFetcher struct {
	collector *colly.Collector
	logger    *slog.Logger
}

// NewCollyFetcher creates a new CollyFetcher that identifies itself with
// userAgent and gives up on a request after timeout
func NewCollyFetcher(userAgent string, timeout time.Duration, logger *slog.Logger) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		// The same index page is fetched on every scheduled run
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	return &CollyFetcher{
		collector: c,
		logger:    logger,
	}
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(url string) (string, error) {
	// Clone shares the HTTP backend but not the callbacks, so repeated
	// fetches do not stack OnResponse handlers.
	c := cf.collector.Clone()

	var body []byte
	var status int

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		cf.logger.Debug("fetch failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	if err := c.Visit(url); err != nil {
		if status != 0 {
			return "", fmt.Errorf("failed to fetch %s: status %d: %w", url, status, err)
		}
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	cf.logger.Debug("fetched page", "url", url, "status", status, "size", len(body))
	return string(body), nil
}

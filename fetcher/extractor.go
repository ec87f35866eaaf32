package fetcher

import (
	"log/slog"

	"divar-notifier/parser"
)

// LinkExtractor turns a listing index page into listing URLs. It never
// fails: any problem is logged and yields an empty result.
type LinkExtractor struct {
	fetcher Fetcher
	parser  *parser.Parser
	logger  *slog.Logger
}

// NewLinkExtractor creates a LinkExtractor
func NewLinkExtractor(f Fetcher, p *parser.Parser, logger *slog.Logger) *LinkExtractor {
	return &LinkExtractor{
		fetcher: f,
		parser:  p,
		logger:  logger,
	}
}

// Extract returns up to maxCount listing URLs found on pageURL, in page order
func (e *LinkExtractor) Extract(pageURL string, maxCount int) []string {
	html, err := e.fetcher.Fetch(pageURL)
	if err != nil {
		e.logger.Error("Error fetching page", "url", pageURL, "error", err)
		return nil
	}

	links, err := e.parser.ExtractLinks(html, maxCount)
	if err != nil {
		e.logger.Error("Error parsing page", "url", pageURL, "error", err)
		return nil
	}

	if len(links) == 0 {
		e.logger.Warn("No ad links found. The page layout may have changed or the site blocks requests.", "url", pageURL)
		return nil
	}

	e.logger.Info("Extracted listing links", "url", pageURL, "count", len(links), "requested", maxCount)
	return links
}

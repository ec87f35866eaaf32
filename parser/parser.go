package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parser extracts listing links from an index page
type Parser struct {
	origin string
	prefix string
}

// NewParser creates a Parser that keeps hrefs starting with prefix and
// rewrites them to absolute URLs under origin
func NewParser(origin, prefix string) *Parser {
	return &Parser{
		origin: strings.TrimRight(origin, "/"),
		prefix: prefix,
	}
}

// ExtractLinks returns up to max unique listing URLs in document order.
// A max of zero or less means no cap.
func (p *Parser) ExtractLinks(htmlContent string, max int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if !strings.HasPrefix(href, p.prefix) {
			return true
		}

		full := p.origin + href
		if seen[full] {
			return true
		}
		seen[full] = true
		links = append(links, full)

		return max <= 0 || len(links) < max
	})

	return links, nil
}

package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// HTMLExtractor selects elements out of raw HTML with CSS selectors.
type HTMLExtractor struct {
	logger zerolog.Logger
}

// NewHTMLExtractor creates a new HTMLExtractor.
func NewHTMLExtractor(logger zerolog.Logger) *HTMLExtractor {
	return &HTMLExtractor{
		logger: logger.With().Str("component", "HTMLExtractor").Logger(),
	}
}

// Select parses htmlContent and returns the inner markup of every element
// matching selector, in document order. An unparseable document is an
// error; a selector that matches nothing yields an empty slice.
func (e *HTMLExtractor) Select(htmlContent, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var inners []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil {
			e.logger.Warn().Err(err).Str("selector", selector).Int("index", i).Msg("Failed to render matched element")
			return
		}
		inners = append(inners, inner)
	})

	e.logger.Debug().Str("selector", selector).Int("matches", len(inners)).Msg("Selected elements")
	return inners, nil
}

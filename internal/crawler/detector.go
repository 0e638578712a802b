package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// frameworkMarkers are substrings whose presence in raw HTML indicates
// a client-side framework shell that needs rendering to yield content.
var frameworkMarkers = []string{
	"__NEXT_DATA__",
	"data-reactroot",
	"ng-version",
	`id="root"`,
	`id="app"`,
	"window.__data",
	"Vue.createApp",
	"nuxt",
}

// HeuristicDetector decides whether a lightweight fetch produced a
// JavaScript shell rather than server-rendered content. The decision
// depends only on the body bytes, so re-running it on the same input
// always yields the same answer.
type HeuristicDetector struct {
	// MinBytes is the size at or above which an empty-looking DOM is
	// suspicious rather than simply a small page.
	MinBytes int
}

// NewHeuristicDetector builds a detector with the given size threshold.
func NewHeuristicDetector(minBytes int) *HeuristicDetector {
	if minBytes <= 0 {
		minBytes = 1024
	}
	return &HeuristicDetector{MinBytes: minBytes}
}

// NeedsRender reports whether the body warrants a rendered re-fetch.
func (d *HeuristicDetector) NeedsRender(body []byte) bool {
	for _, marker := range frameworkMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	if len(body) < d.MinBytes {
		return false
	}
	return blockTextElements(body) == 0
}

// blockTextElements counts block-level elements with non-empty text,
// a proxy for whether the server delivered readable content.
func blockTextElements(body []byte) int {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 1 // unparseable bodies are not re-fetched
	}
	count := 0
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, article, section").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) != "" {
			count++
		}
	})
	return count
}

// NoRender is a RenderDetector that never requests rendering, used
// when the render fallback is disabled.
type NoRender struct{}

// NeedsRender always returns false.
func (NoRender) NeedsRender([]byte) bool { return false }

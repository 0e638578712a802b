package analysis

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

func samplePage() audit.Page {
	h := http.Header{}
	h.Set("Content-Type", "text/html")
	h.Set("X-Robots-Tag", "noindex")
	return audit.Page{
		URL:         "https://example.com/pricing",
		StatusCode:  200,
		ContentType: "text/html",
		Headers:     h,
		Title:       "Pricing",
		Meta: map[string]string{
			"description": "Our pricing plans.",
			"robots":      "index,follow",
		},
		CanonicalURL: "https://example.com/pricing",
		H1Count:      1,
		WordCount:    450,
		Links: []string{
			"https://example.com/",
			"https://example.com/contact",
			"https://partner.io/deal",
		},
		Images: []audit.Image{
			{Src: "/a.png", Alt: "chart", Loading: "lazy"},
			{Src: "/b.png", Alt: ""},
		},
		StructuredData: 1,
		Depth:          1,
		LoadTime:       250 * time.Millisecond,
		PageSize:       20480,
		FetchMethod:    audit.FetchLightweight,
	}
}

func TestPageFacts(t *testing.T) {
	facts := PageFacts(samplePage())
	page, ok := facts["page"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "https://example.com/pricing", page["url"])
	assert.Equal(t, float64(200), page["status_code"])
	assert.Equal(t, true, page["is_https"])
	assert.Equal(t, "Pricing", page["title"])
	assert.Equal(t, float64(1), page["h1_count"])
	assert.Equal(t, float64(450), page["word_count"])
	assert.Equal(t, float64(250), page["load_time_ms"])
	assert.Equal(t, float64(2), page["internal_link_count"])
	assert.Equal(t, float64(1), page["external_link_count"])
	assert.Equal(t, float64(1), page["images_missing_alt"])
	assert.Equal(t, float64(1), page["images_not_lazy"])

	meta := page["meta"].(map[string]any)
	assert.Equal(t, "Our pricing plans.", meta["description"])

	headers := page["headers"].(map[string]any)
	assert.Equal(t, "noindex", headers["x-robots-tag"])
}

func TestPageFactsOmitsAbsentSignals(t *testing.T) {
	p := samplePage()
	p.Title = ""
	p.CanonicalURL = ""
	facts := PageFacts(p)
	page := facts["page"].(map[string]any)

	_, hasTitle := page["title"]
	_, hasCanonical := page["canonical_url"]
	assert.False(t, hasTitle)
	assert.False(t, hasCanonical)
}

func TestSiteFacts(t *testing.T) {
	pages := []audit.Page{
		{URL: "https://example.com/", Title: "Home", Depth: 0, StatusCode: 200,
			Links: []string{"https://example.com/a", "https://example.com/dead"}},
		{URL: "https://example.com/a", Title: "Home", Depth: 1, StatusCode: 200,
			Links: []string{"https://example.com/"}},
		{URL: "https://example.com/dead", Title: "Gone", Depth: 1, StatusCode: 404},
		{URL: "https://example.com/orphan", Title: "Orphan", Depth: 2, StatusCode: 200},
	}

	facts := SiteFacts(pages)
	site := facts["site"].(map[string]any)

	assert.Equal(t, float64(4), site["page_count"])
	assert.Equal(t, float64(1), site["error_page_count"])
	// "Home" appears on two pages.
	assert.Equal(t, float64(2), site["duplicate_title_count"])
	// One link targets the 404 page.
	assert.Equal(t, float64(1), site["broken_internal_link_count"])
	// The orphan page has depth > 0 and no inbound links.
	assert.Equal(t, float64(1), site["orphan_page_count"])
}

package crawler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>  Acme Widgets | Home  </title>
  <meta name="description" content="Widgets for every budget.">
  <meta name="robots" content="index,follow">
  <meta property="og:title" content="Acme Widgets">
  <link rel="canonical" href="https://example.com/home">
  <script type="application/ld+json">{"@type":"Organization"}</script>
</head>
<body>
  <h1>Welcome</h1>
  <h1>Second heading</h1>
  <p>Quality widgets shipped fast to your door.</p>
  <a href="/pricing">Pricing</a>
  <a href="/pricing/">Pricing again</a>
  <a href="https://example.com/about?utm_source=nav">About</a>
  <a href="#top">Top</a>
  <a href="mailto:sales@example.com">Email us</a>
  <a href="/brochure.pdf">Brochure</a>
  <img src="/hero.png" alt="Hero banner" loading="lazy">
  <img src="/untagged.png">
  <script>var ignored = "one two three four";</script>
</body>
</html>`

func sampleResponse() audit.FetchResponse {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	return audit.FetchResponse{
		URL:        "https://example.com/",
		StatusCode: 200,
		Headers:    h,
		Body:       []byte(sampleHTML),
		Duration:   120 * time.Millisecond,
	}
}

func TestExtractFacts(t *testing.T) {
	page, err := ExtractFacts(sampleResponse(), 1)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/", page.URL)
	assert.Equal(t, 200, page.StatusCode)
	assert.Equal(t, "Acme Widgets | Home", page.Title)
	assert.Equal(t, "Widgets for every budget.", page.Meta["description"])
	assert.Equal(t, "Acme Widgets", page.Meta["og:title"])
	assert.Equal(t, "https://example.com/home", page.CanonicalURL)
	assert.Equal(t, 2, page.H1Count)
	assert.Equal(t, 1, page.StructuredData)
	assert.Equal(t, 1, page.Depth)
	assert.Equal(t, audit.FetchLightweight, page.FetchMethod)
	assert.Positive(t, page.WordCount)
}

func TestExtractFactsLinks(t *testing.T) {
	page, err := ExtractFacts(sampleResponse(), 0)
	require.NoError(t, err)

	// The two pricing variants normalize to one entry, fragments and
	// mailto links are dropped, PDFs are filtered as assets, and
	// tracking params are stripped.
	assert.Equal(t, []string{
		"https://example.com/pricing",
		"https://example.com/about",
	}, page.Links)
}

func TestExtractFactsImages(t *testing.T) {
	page, err := ExtractFacts(sampleResponse(), 0)
	require.NoError(t, err)

	require.Len(t, page.Images, 2)
	assert.Equal(t, audit.Image{Src: "/hero.png", Alt: "Hero banner", Loading: "lazy"}, page.Images[0])
	assert.Equal(t, audit.Image{Src: "/untagged.png", Alt: "", Loading: ""}, page.Images[1])
}

func TestExtractFactsWordCountIgnoresScripts(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/html")
	resp := audit.FetchResponse{
		URL:     "https://example.com/",
		Headers: h,
		Body:    []byte(`<html><body><p>five words of real text</p><script>a b c d e f g</script></body></html>`),
	}
	page, err := ExtractFacts(resp, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.WordCount)
}

func TestExtractFactsRenderedFlag(t *testing.T) {
	resp := sampleResponse()
	resp.Rendered = true
	page, err := ExtractFacts(resp, 0)
	require.NoError(t, err)
	assert.Equal(t, audit.FetchRendered, page.FetchMethod)
}

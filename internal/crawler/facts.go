package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// ExtractFacts parses a fetched body into the page record consumed by
// the category engines. Link URLs are returned normalized; references
// that fail to normalize or point at assets are dropped.
func ExtractFacts(resp audit.FetchResponse, depth int) (audit.Page, error) {
	page := audit.Page{
		URL:         resp.URL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Headers.Get("Content-Type"),
		Headers:     resp.Headers,
		Meta:        make(map[string]string),
		Depth:       depth,
		LoadTime:    resp.Duration,
		PageSize:    len(resp.Body),
		FetchMethod: audit.FetchLightweight,
	}
	if resp.Rendered {
		page.FetchMethod = audit.FetchRendered
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return page, err
	}

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if name == "" {
			name, _ = s.Attr("property")
		}
		if name == "" {
			return
		}
		content, _ := s.Attr("content")
		page.Meta[strings.ToLower(name)] = strings.TrimSpace(content)
	})

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if canon, err := Normalize(href, resp.URL); err == nil {
			page.CanonicalURL = canon
		}
	}

	page.H1Count = doc.Find("h1").Length()
	page.WordCount = countWords(doc)
	page.StructuredData = doc.Find(`script[type="application/ld+json"]`).Length()

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		normalized, err := Normalize(href, resp.URL)
		if err != nil || IsAsset(normalized) {
			return
		}
		if !seen[normalized] {
			seen[normalized] = true
			page.Links = append(page.Links, normalized)
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		alt, _ := s.Attr("alt")
		loading, _ := s.Attr("loading")
		page.Images = append(page.Images, audit.Image{Src: src, Alt: alt, Loading: loading})
	})

	return page, nil
}

// countWords totals whitespace-delimited words in the body text,
// excluding script and style content.
func countWords(doc *goquery.Document) int {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return len(strings.Fields(body.Text()))
}

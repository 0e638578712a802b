// Package analysis evaluates the rule set against crawled pages, one
// independent engine per category.
package analysis

import (
	"strings"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/crawler"
	"github.com/JakeFAU/seo-auditor/internal/rules"
)

// PageFacts converts one crawled page into the fact tree rules
// evaluate against. Optional signals (title, canonical, selected
// headers) appear as keys only when the page actually carried them, so
// exists/not_exists conditions see real presence.
func PageFacts(page audit.Page) rules.Facts {
	pf := map[string]any{
		"url":                   page.URL,
		"status_code":           float64(page.StatusCode),
		"content_type":          page.ContentType,
		"is_https":              strings.HasPrefix(page.URL, "https://"),
		"h1_count":              float64(page.H1Count),
		"word_count":            float64(page.WordCount),
		"structured_data_count": float64(page.StructuredData),
		"depth":                 float64(page.Depth),
		"load_time_ms":          float64(page.LoadTime.Milliseconds()),
		"page_size_bytes":       float64(page.PageSize),
		"fetch_method":          string(page.FetchMethod),
	}

	if page.Title != "" {
		pf["title"] = page.Title
	}
	if page.CanonicalURL != "" {
		pf["canonical_url"] = page.CanonicalURL
		pf["canonical_matches"] = page.CanonicalURL == page.URL
	}

	meta := map[string]any{}
	for name, content := range page.Meta {
		meta[name] = content
	}
	pf["meta"] = meta

	headers := map[string]any{}
	for name, values := range page.Headers {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = strings.Join(values, ", ")
		}
	}
	pf["headers"] = headers

	links := make([]any, 0, len(page.Links))
	internal, external := 0, 0
	for _, l := range page.Links {
		links = append(links, l)
		if crawler.SameDomain(page.URL, l) {
			internal++
		} else {
			external++
		}
	}
	pf["links"] = links
	pf["internal_link_count"] = float64(internal)
	pf["external_link_count"] = float64(external)

	missingAlt, notLazy := 0, 0
	for _, img := range page.Images {
		if strings.TrimSpace(img.Alt) == "" {
			missingAlt++
		}
		if !strings.EqualFold(img.Loading, "lazy") {
			notLazy++
		}
	}
	pf["image_count"] = float64(len(page.Images))
	pf["images_missing_alt"] = float64(missingAlt)
	pf["images_not_lazy"] = float64(notLazy)

	return rules.Facts{"page": pf}
}

// SiteFacts aggregates cross-page signals for site-scoped rules.
func SiteFacts(pages []audit.Page) rules.Facts {
	crawledOK := map[string]bool{}
	errored := map[string]bool{}
	titles := map[string]int{}
	inbound := map[string]int{}
	totalWords := 0

	for _, p := range pages {
		if p.StatusCode >= 400 {
			errored[p.URL] = true
		} else {
			crawledOK[p.URL] = true
		}
		if t := strings.TrimSpace(strings.ToLower(p.Title)); t != "" {
			titles[t]++
		}
		totalWords += p.WordCount
	}

	brokenLinks := 0
	for _, p := range pages {
		for _, l := range p.Links {
			inbound[l]++
			if errored[l] {
				brokenLinks++
			}
		}
	}

	duplicateTitles := 0
	for _, n := range titles {
		if n > 1 {
			duplicateTitles += n
		}
	}

	orphans := 0
	for _, p := range pages {
		if p.Depth > 0 && inbound[p.URL] == 0 {
			orphans++
		}
	}

	avgWords := 0.0
	if len(pages) > 0 {
		avgWords = float64(totalWords) / float64(len(pages))
	}

	return rules.Facts{"site": map[string]any{
		"page_count":                 float64(len(pages)),
		"error_page_count":           float64(len(errored)),
		"duplicate_title_count":      float64(duplicateTitles),
		"broken_internal_link_count": float64(brokenLinks),
		"orphan_page_count":          float64(orphans),
		"avg_word_count":             avgWords,
	}}
}

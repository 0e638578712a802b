package crawler

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// maxSitemapFetches caps how many sitemap documents one crawl will
// retrieve, including sitemap-index children.
const maxSitemapFetches = 10

// discoverSitemapURLs collects page URLs from the site's sitemaps:
// the robots.txt Sitemap directives when present, otherwise the
// conventional /sitemap.xml location. Sitemap-index files are followed
// breadth-first up to the fetch cap. Failures are silent; a site
// without sitemaps crawls from the root alone.
func (c *Crawler) discoverSitemapURLs(ctx context.Context, root string) []string {
	queue := c.robots.Sitemaps(ctx, root)
	if len(queue) == 0 {
		if fallback := defaultSitemapLocation(root); fallback != "" {
			queue = []string{fallback}
		}
	}

	var urls []string
	seen := map[string]bool{}
	fetched := 0
	for len(queue) > 0 && fetched < maxSitemapFetches && len(urls) < c.opts.MaxPages {
		loc := queue[0]
		queue = queue[1:]
		if seen[loc] {
			continue
		}
		seen[loc] = true

		if err := c.limiter.Acquire(ctx, Domain(loc)); err != nil {
			break
		}
		resp, err := c.fetcher.Fetch(ctx, loc)
		fetched++
		if err != nil || resp.StatusCode >= 400 {
			c.logger.Debug("sitemap fetch failed", zap.String("sitemap", loc), zap.Error(err))
			continue
		}

		children, locs := parseSitemap(resp.Body)
		queue = append(queue, children...)
		urls = append(urls, locs...)
	}
	return urls
}

// parseSitemap pulls child sitemap locations (sitemap-index files) and
// page locations (urlset files) out of one sitemap document.
func parseSitemap(body []byte) (children, urls []string) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil
	}
	for _, n := range xmlquery.Find(doc, "//sitemap/loc") {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			children = append(children, loc)
		}
	}
	for _, n := range xmlquery.Find(doc, "//url/loc") {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			urls = append(urls, loc)
		}
	}
	return children, urls
}

func defaultSitemapLocation(root string) string {
	u, err := url.Parse(root)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/sitemap.xml"
}

// seedFromSitemaps appends sitemap-discovered URLs to the frontier at
// depth 0, subject to the same visited/domain/asset filters links go
// through.
func (c *Crawler) seedFromSitemaps(ctx context.Context, root string, frontier *[]audit.CrawlTarget, visited map[string]bool) {
	seeded := 0
	for _, loc := range c.discoverSitemapURLs(ctx, root) {
		norm, err := Normalize(loc, root)
		if err != nil || visited[norm] || IsAsset(norm) {
			continue
		}
		if c.opts.SameDomainOnly && !SameDomain(root, norm) {
			continue
		}
		visited[norm] = true
		*frontier = append(*frontier, audit.CrawlTarget{URL: norm, Depth: 0, DiscoveredFrom: "sitemap"})
		seeded++
	}
	if seeded > 0 {
		c.logger.Info("frontier seeded from sitemaps", zap.Int("urls", seeded))
	}
}

// Package crawler implements the bounded breadth-first site traversal
// that feeds the analysis pipeline.
package crawler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/metrics"
	"github.com/JakeFAU/seo-auditor/internal/ratelimit"
)

// Options bound one traversal.
type Options struct {
	MaxPages       int
	MaxDepth       int
	BatchSize      int
	SameDomainOnly bool
	RenderFallback bool
	SitemapSeeding bool

	// Snapshot, when set, receives the raw body of every successful
	// fetch. Failures inside the hook are the hook's problem.
	Snapshot func(ctx context.Context, url string, body []byte)
}

// Crawler walks a site breadth-first from a root URL. The controller
// goroutine owns the frontier and visited set; fetch work fans out in
// batches and results come back over a channel, so no shared traversal
// state is touched concurrently.
type Crawler struct {
	fetcher  audit.Fetcher
	renderer audit.Fetcher
	robots   audit.RobotsPolicy
	detector audit.RenderDetector
	limiter  *ratelimit.Limiter
	opts     Options
	logger   *zap.Logger
}

// New assembles a Crawler. renderer may be nil when the render
// fallback is disabled.
func New(fetcher, renderer audit.Fetcher, robots audit.RobotsPolicy, detector audit.RenderDetector, limiter *ratelimit.Limiter, opts Options, logger *zap.Logger) *Crawler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &Crawler{
		fetcher:  fetcher,
		renderer: renderer,
		robots:   robots,
		detector: detector,
		limiter:  limiter,
		opts:     opts,
		logger:   logger,
	}
}

// fetchOutcome carries one fetch result back to the controller.
type fetchOutcome struct {
	target audit.CrawlTarget
	page   audit.Page
	err    error
}

// Crawl traverses the site rooted at rootURL. Context expiry truncates
// the crawl rather than failing it; the traversal is fatal only when
// zero pages were fetched.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) ([]audit.Page, audit.CrawlStats, error) {
	start := time.Now()

	root, err := Normalize(rootURL, "")
	if err != nil {
		return nil, audit.CrawlStats{}, err
	}

	frontier := []audit.CrawlTarget{{URL: root, Depth: 0}}
	visited := map[string]bool{root: true}

	if c.opts.SitemapSeeding {
		c.seedFromSitemaps(ctx, root, &frontier, visited)
	}

	var (
		pages   []audit.Page
		stats   audit.CrawlStats
		delayed = map[string]bool{}
	)

	for len(frontier) > 0 && len(pages) < c.opts.MaxPages {
		if ctx.Err() != nil {
			stats.Truncated = true
			break
		}

		batch := c.takeBatch(&frontier, c.opts.MaxPages-len(pages))
		c.applyCrawlDelays(ctx, batch, delayed)
		outcomes := c.fetchBatch(ctx, batch, &stats)

		for _, out := range outcomes {
			if out.err != nil {
				if errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded) {
					stats.Truncated = true
					continue
				}
				stats.Failed++
				metrics.FetchErrors.Inc()
				c.logger.Warn("fetch failed",
					zap.String("url", out.target.URL),
					zap.Error(out.err))
				continue
			}

			page := out.page
			// Redirects can land two frontier URLs on one final URL;
			// the visited set keyed on the normalized final URL keeps
			// each page in the output exactly once.
			if norm, nerr := Normalize(page.URL, out.target.URL); nerr == nil && norm != out.target.URL {
				if visited[norm] {
					stats.Skipped++
					c.logger.Debug("redirect target already visited",
						zap.String("from", out.target.URL),
						zap.String("to", norm))
					continue
				}
				visited[norm] = true
				page.URL = norm
			}
			pages = append(pages, page)
			stats.Crawled++
			metrics.PagesFetched.WithLabelValues(string(page.FetchMethod)).Inc()
			if page.FetchMethod == audit.FetchRendered {
				stats.Rendered++
			}

			if page.Depth >= c.opts.MaxDepth {
				continue
			}
			for _, link := range page.Links {
				if visited[link] {
					continue
				}
				if c.opts.SameDomainOnly && !SameDomain(root, link) {
					continue
				}
				// Marked visited at enqueue time so a URL discovered on
				// two pages in the same batch enters the frontier once.
				visited[link] = true
				frontier = append(frontier, audit.CrawlTarget{
					URL:            link,
					Depth:          page.Depth + 1,
					DiscoveredFrom: page.URL,
				})
			}
		}
	}

	if len(frontier) > 0 && len(pages) >= c.opts.MaxPages {
		stats.Truncated = true
	}
	stats.Elapsed = time.Since(start)

	if len(pages) == 0 {
		return nil, stats, audit.ErrNoPagesCrawled
	}

	c.logger.Info("crawl complete",
		zap.String("root", root),
		zap.Int("pages", stats.Crawled),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("rendered", stats.Rendered),
		zap.Bool("truncated", stats.Truncated),
		zap.Duration("elapsed", stats.Elapsed))

	return pages, stats, nil
}

// takeBatch pops up to BatchSize targets (capped at the remaining page
// budget) off the front of the frontier.
func (c *Crawler) takeBatch(frontier *[]audit.CrawlTarget, budget int) []audit.CrawlTarget {
	n := c.opts.BatchSize
	if n > budget {
		n = budget
	}
	if n > len(*frontier) {
		n = len(*frontier)
	}
	batch := (*frontier)[:n]
	*frontier = (*frontier)[n:]
	return batch
}

// applyCrawlDelays tightens the per-domain rate limit to honor
// robots.txt Crawl-delay, once per domain per crawl.
func (c *Crawler) applyCrawlDelays(ctx context.Context, batch []audit.CrawlTarget, delayed map[string]bool) {
	for _, target := range batch {
		domain := Domain(target.URL)
		if domain == "" || delayed[domain] {
			continue
		}
		delayed[domain] = true
		if d := c.robots.CrawlDelay(ctx, target.URL); d > 0 {
			c.limiter.Restrict(domain, 1/d.Seconds())
			c.logger.Debug("honoring crawl-delay",
				zap.String("domain", domain),
				zap.Duration("delay", d))
		}
	}
}

// fetchBatch runs one batch concurrently and gathers the outcomes.
// Robots-disallowed targets are skipped without a fetch.
func (c *Crawler) fetchBatch(ctx context.Context, batch []audit.CrawlTarget, stats *audit.CrawlStats) []fetchOutcome {
	results := make(chan fetchOutcome, len(batch))
	var wg sync.WaitGroup

	for _, target := range batch {
		if !c.robots.Allowed(ctx, target.URL) {
			stats.Skipped++
			metrics.RobotsSkips.Inc()
			c.logger.Debug("skipped by robots", zap.String("url", target.URL))
			continue
		}
		wg.Add(1)
		go func(t audit.CrawlTarget) {
			defer wg.Done()
			page, err := c.fetchOne(ctx, t)
			results <- fetchOutcome{target: t, page: page, err: err}
		}(target)
	}

	wg.Wait()
	close(results)

	outcomes := make([]fetchOutcome, 0, len(batch))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// fetchOne rate-limits, fetches, optionally promotes to the rendering
// path, and extracts page facts.
func (c *Crawler) fetchOne(ctx context.Context, target audit.CrawlTarget) (audit.Page, error) {
	if err := c.limiter.Acquire(ctx, Domain(target.URL)); err != nil {
		return audit.Page{}, err
	}

	resp, err := c.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return audit.Page{}, err
	}

	if c.shouldRender(resp) {
		metrics.RenderPromotions.Inc()
		c.logger.Debug("promoting to rendered fetch", zap.String("url", target.URL))
		rendered, rerr := c.renderer.Fetch(ctx, target.URL)
		if rerr == nil {
			rendered.Rendered = true
			resp = rendered
		} else {
			// Keep the lightweight body rather than losing the page.
			c.logger.Warn("rendered fetch failed, keeping lightweight body",
				zap.String("url", target.URL), zap.Error(rerr))
		}
	}

	if c.opts.Snapshot != nil {
		c.opts.Snapshot(ctx, resp.URL, resp.Body)
	}

	page, err := ExtractFacts(resp, target.Depth)
	if err != nil {
		// Non-HTML or unparseable bodies still count as crawled pages;
		// the status code and headers alone feed several rules.
		c.logger.Debug("fact extraction incomplete",
			zap.String("url", target.URL), zap.Error(err))
	}
	return page, nil
}

func (c *Crawler) shouldRender(resp audit.FetchResponse) bool {
	if !c.opts.RenderFallback || c.renderer == nil || resp.Rendered {
		return false
	}
	if !strings.Contains(resp.Headers.Get("Content-Type"), "text/html") {
		return false
	}
	return c.detector.NeedsRender(resp.Body)
}

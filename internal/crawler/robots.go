package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// robotsFetchTimeout bounds the robots.txt fetch so a slow or absent
// robots endpoint cannot stall the traversal.
const robotsFetchTimeout = 10 * time.Second

// RobotsEnforcer fetches and caches robots.txt per domain and answers
// allow/deny for candidate URLs. A domain whose robots.txt cannot be
// fetched is treated as fully allowed.
type RobotsEnforcer struct {
	userAgent string
	client    *http.Client
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsEnforcer builds an enforcer identifying itself as userAgent.
func NewRobotsEnforcer(userAgent string, logger *zap.Logger) *RobotsEnforcer {
	return &RobotsEnforcer{
		userAgent: userAgent,
		client:    &http.Client{Timeout: robotsFetchTimeout},
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the URL may be fetched under the domain's
// robots.txt. The file is fetched once per domain and cached for the
// enforcer's lifetime.
func (r *RobotsEnforcer) Allowed(ctx context.Context, rawURL string) bool {
	u, err := parseForRobots(rawURL)
	if err != nil {
		return false
	}

	data := r.dataFor(ctx, u.scheme, u.host)
	if data == nil {
		// Unreachable or malformed robots.txt never blocks the crawl.
		return true
	}
	return data.TestAgent(u.path, r.userAgent)
}

type robotsURL struct {
	scheme string
	host   string
	path   string
}

func parseForRobots(rawURL string) (robotsURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return robotsURL{}, err
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return robotsURL{scheme: u.Scheme, host: u.Host, path: p}, nil
}

func (r *RobotsEnforcer) dataFor(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	r.mu.Lock()
	if data, ok := r.cache[host]; ok {
		r.mu.Unlock()
		return data
	}
	r.mu.Unlock()

	data := r.fetch(ctx, scheme, host)

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data
}

func (r *RobotsEnforcer) fetch(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	robotsAddr := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsAddr, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("robots fetch failed", zap.String("host", host), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		r.logger.Debug("robots parse failed", zap.String("host", host), zap.Error(err))
		return nil
	}
	return data
}

// CrawlDelay reports the domain's Crawl-delay directive for the
// enforcer's user agent, or zero when robots.txt is absent or silent.
func (r *RobotsEnforcer) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := parseForRobots(rawURL)
	if err != nil {
		return 0
	}
	data := r.dataFor(ctx, u.scheme, u.host)
	if data == nil {
		return 0
	}
	if group := data.FindGroup(r.userAgent); group != nil {
		return group.CrawlDelay
	}
	return 0
}

// Sitemaps lists the Sitemap directives declared in the domain's
// robots.txt.
func (r *RobotsEnforcer) Sitemaps(ctx context.Context, rawURL string) []string {
	u, err := parseForRobots(rawURL)
	if err != nil {
		return nil
	}
	data := r.dataFor(ctx, u.scheme, u.host)
	if data == nil {
		return nil
	}
	return data.Sitemaps
}

// AllowAll is a RobotsPolicy that permits everything, used when the
// audit is configured to ignore robots.txt.
type AllowAll struct{}

// Allowed always returns true.
func (AllowAll) Allowed(context.Context, string) bool { return true }

// CrawlDelay reports no delay.
func (AllowAll) CrawlDelay(context.Context, string) time.Duration { return 0 }

// Sitemaps reports no sitemap directives.
func (AllowAll) Sitemaps(context.Context, string) []string { return nil }

package audit

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// RobotsPolicy answers whether a URL may be fetched and exposes the
// politeness hints robots.txt carries. Implementations cache per
// domain for the lifetime of one audit.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
	// CrawlDelay reports the Crawl-delay directive for the URL's
	// domain, or zero when none is declared.
	CrawlDelay(ctx context.Context, url string) time.Duration
	// Sitemaps lists the Sitemap directives for the URL's domain.
	Sitemaps(ctx context.Context, url string) []string
}

// RenderDetector decides whether a lightweight fetch must be discarded
// and re-fetched through the rendering path.
type RenderDetector interface {
	NeedsRender(body []byte) bool
}

// Store persists audit records and full results.
type Store interface {
	CreateAudit(ctx context.Context, rec Record) error
	UpdateAudit(ctx context.Context, rec Record) error
	GetAudit(ctx context.Context, auditID string) (Record, error)
	SaveResult(ctx context.Context, result Result) error
	GetResult(ctx context.Context, auditID string) (Result, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// TrafficSource supplies the traffic-potential input for
// prioritization, on a 0-100 scale. The value is opaque to the
// pipeline; the default implementation derives it from severity.
type TrafficSource interface {
	TrafficPotential(issue Issue) float64
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces audit IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

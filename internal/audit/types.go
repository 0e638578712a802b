// Package audit defines core types shared across the audit pipeline.
package audit

import (
	"net/http"
	"time"
)

// Status represents the lifecycle state of an audit.
type Status string

// Audit status values persisted in the audit store.
const (
	StatusQueued    Status = "queued"
	StatusCrawling  Status = "crawling"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Severity classifies how urgently an issue should be fixed.
type Severity string

// Severity levels, most to least urgent.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Category names an analysis dimension of the audit.
type Category string

// Audit categories. Each category is evaluated by an independent
// rule-engine instance and contributes a weighted share of the
// overall score.
const (
	CategoryTechnical     Category = "technical"
	CategoryOnPage        Category = "on_page"
	CategoryContent       Category = "content"
	CategoryPerformance   Category = "performance"
	CategoryCrawlability  Category = "crawlability"
	CategoryInternalLinks Category = "internal_links"
	CategorySchema        Category = "schema"
	CategoryAuthority     Category = "authority"
)

// Categories lists every category in stable order.
func Categories() []Category {
	return []Category{
		CategoryTechnical,
		CategoryOnPage,
		CategoryContent,
		CategoryPerformance,
		CategoryCrawlability,
		CategoryInternalLinks,
		CategorySchema,
		CategoryAuthority,
	}
}

// EngineStatus records whether a category engine completed.
type EngineStatus string

// Engine status values. Failed categories are excluded from the
// overall weighted average.
const (
	EngineSuccess EngineStatus = "success"
	EngineFailed  EngineStatus = "failed"
)

// FetchMethod records how a page body was obtained.
type FetchMethod string

// Fetch methods.
const (
	FetchLightweight FetchMethod = "lightweight"
	FetchRendered    FetchMethod = "rendered"
)

// CrawlTarget is a discovered-but-not-yet-fetched URL in the frontier.
// Targets are keyed by normalized URL and consumed exactly once.
type CrawlTarget struct {
	URL            string
	Depth          int
	DiscoveredFrom string
}

// Image captures the attributes of an <img> element relevant to audits.
type Image struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Loading string `json:"loading,omitempty"`
}

// Page is the immutable record produced by the crawler for one URL.
// Once fetched it is shared read-only by every category engine.
type Page struct {
	URL            string            `json:"url"`
	StatusCode     int               `json:"status_code"`
	ContentType    string            `json:"content_type"`
	Headers        http.Header       `json:"headers"`
	Title          string            `json:"title"`
	Meta           map[string]string `json:"meta"`
	CanonicalURL   string            `json:"canonical_url,omitempty"`
	H1Count        int               `json:"h1_count"`
	WordCount      int               `json:"word_count"`
	Links          []string          `json:"links"`
	Images         []Image           `json:"images"`
	StructuredData int               `json:"structured_data"`
	Depth          int               `json:"depth"`
	LoadTime       time.Duration     `json:"load_time"`
	PageSize       int               `json:"page_size_bytes"`
	FetchMethod    FetchMethod       `json:"fetch_method"`
	FetchedAt      time.Time         `json:"fetched_at"`
}

// CrawlStats summarizes one traversal.
type CrawlStats struct {
	Crawled   int           `json:"crawled"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Rendered  int           `json:"rendered"`
	Truncated bool          `json:"truncated"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Issue is one matched rule, accumulated across every affected page.
// There is at most one Issue per rule per audit.
type Issue struct {
	RuleID         string   `json:"rule_id"`
	Name           string   `json:"name"`
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	ImpactScore    float64  `json:"impact_score"`
	EffortScore    float64  `json:"effort_score"`
	AffectedURLs   []string `json:"affected_urls"`
	Recommendation string   `json:"recommendation"`
}

// CategoryScore is the scored outcome of one category engine.
type CategoryScore struct {
	Category Category     `json:"category"`
	Score    float64      `json:"score"`
	Grade    string       `json:"grade"`
	Weight   float64      `json:"weight"`
	Status   EngineStatus `json:"engine_status"`
	Issues   int          `json:"issues_count"`
}

// OverallScore is the weighted aggregate over successful categories.
type OverallScore struct {
	Score float64 `json:"score"`
	Grade string  `json:"grade"`
}

// Recommendation is a ranked remediation action derived from an Issue.
// Recommendations are recomputed every audit and never persisted as
// mutable entities across audits.
type Recommendation struct {
	RuleID        string   `json:"rule_id"`
	Rank          int      `json:"rank"`
	PriorityScore float64  `json:"priority_score"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Effort        string   `json:"effort"`
	Impact        string   `json:"impact"`
	Steps         []string `json:"implementation_steps,omitempty"`
}

// Result bundles everything the pipeline emits for one audit.
type Result struct {
	AuditID         string           `json:"audit_id"`
	RootURL         string           `json:"root_url"`
	Pages           []Page           `json:"pages"`
	Issues          []Issue          `json:"issues"`
	CategoryScores  []CategoryScore  `json:"category_scores"`
	Overall         OverallScore     `json:"overall"`
	Recommendations []Recommendation `json:"recommendations"`
	Stats           CrawlStats       `json:"crawl_stats"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
}

// Record is the metadata persisted for each submitted audit.
type Record struct {
	ID           string     `json:"id"`
	RootURL      string     `json:"root_url"`
	Status       Status     `json:"status"`
	Submitted    time.Time  `json:"submitted_at"`
	Started      *time.Time `json:"started_at,omitempty"`
	Finished     *time.Time `json:"finished_at,omitempty"`
	ErrorText    string     `json:"error_text,omitempty"`
	PagesCrawled int        `json:"pages_crawled"`
	OverallScore float64    `json:"overall_score"`
	OverallGrade string     `json:"overall_grade"`
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// SeverityWeight returns the scoring penalty weight for a severity.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 8
	case SeverityLow:
		return 3
	default:
		return 0
	}
}

// SeverityRank returns the severity normalized to a 0-100 scale, used
// by the prioritization formula.
func SeverityRank(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityHigh:
		return 75
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 25
	default:
		return 0
	}
}

// Grade converts a 0-100 score to a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 65:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

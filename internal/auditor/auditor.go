// Package auditor orchestrates the full audit pipeline: crawl,
// analyze, score, prioritize, persist, notify.
package auditor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/analysis"
	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/logging"
	"github.com/JakeFAU/seo-auditor/internal/metrics"
	"github.com/JakeFAU/seo-auditor/internal/prioritize"
	"github.com/JakeFAU/seo-auditor/internal/scoring"
	"github.com/JakeFAU/seo-auditor/internal/snapshot"
)

// Crawler is the traversal stage seen by the orchestrator.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string) ([]audit.Page, audit.CrawlStats, error)
}

// CrawlerFactory builds a fresh traversal per audit. Per-audit
// construction gives each run its own robots cache and lets the
// snapshot hook bind to the audit id.
type CrawlerFactory func(auditID string) Crawler

// Auditor runs one audit end to end. All stages report into the store
// so the API can expose progress, and a completion event goes to the
// publisher whether the audit succeeded or failed.
type Auditor struct {
	newCrawler  CrawlerFactory
	coordinator *analysis.Coordinator
	scorer      *scoring.Engine
	ranker      *prioritize.Engine
	store       audit.Store
	publisher   audit.Publisher
	archiver    *snapshot.Archiver
	topic       string
	budget      time.Duration
	clock       func() time.Time
	logger      *zap.Logger
}

// Options wires an Auditor.
type Options struct {
	NewCrawler  CrawlerFactory
	Coordinator *analysis.Coordinator
	Scorer      *scoring.Engine
	Ranker      *prioritize.Engine
	Store       audit.Store
	Publisher   audit.Publisher
	Archiver    *snapshot.Archiver
	Topic       string
	Budget      time.Duration
	Logger      *zap.Logger
}

// New assembles an Auditor.
func New(opts Options) *Auditor {
	if opts.Budget <= 0 {
		opts.Budget = 30 * time.Minute
	}
	return &Auditor{
		newCrawler:  opts.NewCrawler,
		coordinator: opts.Coordinator,
		scorer:      opts.Scorer,
		ranker:      opts.Ranker,
		store:       opts.Store,
		publisher:   opts.Publisher,
		archiver:    opts.Archiver,
		topic:       opts.Topic,
		budget:      opts.Budget,
		clock:       time.Now,
		logger:      opts.Logger,
	}
}

// Event is the payload published when an audit finishes.
type Event struct {
	AuditID      string  `json:"audit_id"`
	RootURL      string  `json:"root_url"`
	Status       string  `json:"status"`
	OverallScore float64 `json:"overall_score,omitempty"`
	OverallGrade string  `json:"overall_grade,omitempty"`
	PagesCrawled int     `json:"pages_crawled"`
	Error        string  `json:"error,omitempty"`
}

// stageGracePeriod bounds the post-crawl stages when the audit budget
// expired during the crawl. Analysis and scoring are in-memory and
// fast; the grace window mostly covers persistence.
const stageGracePeriod = 2 * time.Minute

// Run executes the pipeline for one queued audit record. The returned
// error is nil when a result was produced and stored, even if the
// crawl was truncated or some categories failed.
func (a *Auditor) Run(ctx context.Context, rec audit.Record) (audit.Result, error) {
	logger := logging.ForAudit(a.logger, rec.ID)
	started := a.clock()
	timer := time.Now()
	defer func() {
		metrics.AuditDuration.Observe(time.Since(timer).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	rec.Status = audit.StatusCrawling
	rec.Started = &started
	if err := a.store.UpdateAudit(ctx, rec); err != nil {
		return audit.Result{}, audit.NewFailure(rec.ID, err)
	}

	pages, stats, err := a.newCrawler(rec.ID).Crawl(ctx, rec.RootURL)
	if err != nil {
		return audit.Result{}, a.fail(ctx, rec, logger, err)
	}
	logger.Info("crawl stage done", zap.Int("pages", len(pages)), zap.Bool("truncated", stats.Truncated))

	// A budget that ran out mid-crawl truncates the frontier, the same
	// as hitting max_pages; the pages already fetched still get
	// analyzed and scored on a grace context. Cancellation stays
	// terminal.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return audit.Result{}, a.fail(ctx, rec, logger, audit.ErrCanceled)
		}
		stats.Truncated = true
		var graceCancel context.CancelFunc
		ctx, graceCancel = context.WithTimeout(context.WithoutCancel(ctx), stageGracePeriod)
		defer graceCancel()
	}

	rec.Status = audit.StatusAnalyzing
	rec.PagesCrawled = len(pages)
	if err := a.store.UpdateAudit(ctx, rec); err != nil {
		return audit.Result{}, a.fail(ctx, rec, logger, err)
	}

	categoryResults, err := a.coordinator.Analyze(ctx, pages)
	if err != nil {
		return audit.Result{}, a.fail(ctx, rec, logger, err)
	}

	var issues []audit.Issue
	for _, cr := range categoryResults {
		issues = append(issues, cr.Issues...)
	}

	categoryScores, overall, err := a.scorer.Score(categoryResults, len(pages))
	if err != nil {
		return audit.Result{}, a.fail(ctx, rec, logger, err)
	}

	recommendations := a.ranker.Rank(issues)

	finished := a.clock()
	result := audit.Result{
		AuditID:         rec.ID,
		RootURL:         rec.RootURL,
		Pages:           pages,
		Issues:          issues,
		CategoryScores:  categoryScores,
		Overall:         overall,
		Recommendations: recommendations,
		Stats:           stats,
		StartedAt:       started,
		FinishedAt:      finished,
	}

	if err := a.store.SaveResult(ctx, result); err != nil {
		return audit.Result{}, a.fail(ctx, rec, logger, err)
	}

	rec.Status = audit.StatusComplete
	rec.Finished = &finished
	rec.OverallScore = overall.Score
	rec.OverallGrade = overall.Grade
	if err := a.store.UpdateAudit(ctx, rec); err != nil {
		return audit.Result{}, audit.NewFailure(rec.ID, err)
	}

	a.publish(rec, logger)

	logger.Info("audit complete",
		zap.Float64("score", overall.Score),
		zap.String("grade", overall.Grade),
		zap.Int("issues", len(issues)),
		zap.Int("recommendations", len(recommendations)))

	return result, nil
}

// fail marks the record failed (or canceled), publishes the terminal
// event, and wraps the cause.
func (a *Auditor) fail(ctx context.Context, rec audit.Record, logger *zap.Logger, cause error) error {
	finished := a.clock()
	rec.Finished = &finished
	rec.ErrorText = cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, audit.ErrCanceled) {
		rec.Status = audit.StatusCanceled
	} else {
		rec.Status = audit.StatusFailed
	}

	// Updating the terminal status must survive budget expiry.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.store.UpdateAudit(updateCtx, rec); err != nil {
		logger.Error("failed to record terminal status", zap.Error(err))
	}

	a.publish(rec, logger)

	logger.Warn("audit failed", zap.String("status", string(rec.Status)), zap.Error(cause))
	return audit.NewFailure(rec.ID, cause)
}

func (a *Auditor) publish(rec audit.Record, logger *zap.Logger) {
	if a.publisher == nil {
		return
	}
	event := Event{
		AuditID:      rec.ID,
		RootURL:      rec.RootURL,
		Status:       string(rec.Status),
		OverallScore: rec.OverallScore,
		OverallGrade: rec.OverallGrade,
		PagesCrawled: rec.PagesCrawled,
		Error:        rec.ErrorText,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := a.publisher.Publish(ctx, a.topic, event); err != nil {
		logger.Warn("event publish failed", zap.Error(err))
	}
}

// SnapshotHook adapts the archiver into the crawler's snapshot hook,
// bound to one audit.
func (a *Auditor) SnapshotHook(auditID string) func(ctx context.Context, url string, body []byte) {
	if !a.archiver.Enabled() {
		return nil
	}
	return func(ctx context.Context, url string, body []byte) {
		// Best effort; Archive already logs failures.
		_, _ = a.archiver.Archive(ctx, auditID, url, body)
	}
}

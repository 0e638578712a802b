package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/analysis"
	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/auditor"
	"github.com/JakeFAU/seo-auditor/internal/config"
	"github.com/JakeFAU/seo-auditor/internal/prioritize"
	"github.com/JakeFAU/seo-auditor/internal/rules"
	"github.com/JakeFAU/seo-auditor/internal/scoring"
	"github.com/JakeFAU/seo-auditor/internal/snapshot"
	storemem "github.com/JakeFAU/seo-auditor/internal/store/memory"
)

type instantCrawler struct{}

func (instantCrawler) Crawl(_ context.Context, rootURL string) ([]audit.Page, audit.CrawlStats, error) {
	return []audit.Page{{
		URL:        rootURL + "/",
		StatusCode: 200,
		Title:      "Stub page title for dispatcher tests",
		Meta:       map[string]string{"description": "Stubbed page used by the dispatcher tests."},
		H1Count:    1,
		WordCount:  500,
	}}, audit.CrawlStats{Crawled: 1}, nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *storemem.Store) {
	t.Helper()
	reg, err := rules.LoadDefault()
	require.NoError(t, err)
	logger := zap.NewNop()
	store := storemem.New()

	a := auditor.New(auditor.Options{
		NewCrawler:  func(string) auditor.Crawler { return instantCrawler{} },
		Coordinator: analysis.NewCoordinator(reg, logger),
		Scorer:      scoring.New(config.DefaultWeights(), 125, logger),
		Ranker:      prioritize.New(prioritize.SeverityTraffic{}, reg, logger),
		Store:       store,
		Archiver:    snapshot.NewArchiver(nil, "", logger),
		Budget:      time.Minute,
		Logger:      logger,
	})
	d := New(a, store, 2, 8, logger)
	t.Cleanup(d.Shutdown)
	return d, store
}

func waitForStatus(t *testing.T, store *storemem.Store, id string, want audit.Status) audit.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.GetAudit(context.Background(), id)
		require.NoError(t, err)
		if rec.Status == want {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("audit %s never reached status %s", id, want)
	return audit.Record{}
}

func TestSubmitRunsAudit(t *testing.T) {
	d, store := newTestDispatcher(t)

	rec, err := d.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, audit.StatusQueued, rec.Status)
	assert.Equal(t, "https://example.com/", rec.RootURL)

	done := waitForStatus(t, store, rec.ID, audit.StatusComplete)
	assert.Equal(t, 1, done.PagesCrawled)
	assert.NotEmpty(t, done.OverallGrade)
}

func TestSubmitRejectsInvalidURL(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Submit(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestCancelQueuedAudit(t *testing.T) {
	d, store := newTestDispatcher(t)

	// Insert a queued record directly so no worker ever sees it.
	rec := audit.Record{
		ID:        "queued-1",
		RootURL:   "https://example.com/",
		Status:    audit.StatusQueued,
		Submitted: time.Now(),
	}
	require.NoError(t, store.CreateAudit(context.Background(), rec))

	require.NoError(t, d.Cancel(context.Background(), "queued-1"))

	got, err := store.GetAudit(context.Background(), "queued-1")
	require.NoError(t, err)
	assert.Equal(t, audit.StatusCanceled, got.Status)
}

func TestCancelUnknownAudit(t *testing.T) {
	d, _ := newTestDispatcher(t)
	assert.Error(t, d.Cancel(context.Background(), "nope"))
}

func TestCancelCompletedAuditFails(t *testing.T) {
	d, store := newTestDispatcher(t)

	rec, err := d.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	waitForStatus(t, store, rec.ID, audit.StatusComplete)
	// Let the worker unregister the finished run.
	time.Sleep(50 * time.Millisecond)

	assert.Error(t, d.Cancel(context.Background(), rec.ID))
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

func TestRecordLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec := audit.Record{ID: "a1", RootURL: "https://example.com", Status: audit.StatusQueued}
	require.NoError(t, s.CreateAudit(ctx, rec))
	assert.Error(t, s.CreateAudit(ctx, rec), "duplicate id must fail")

	rec.Status = audit.StatusComplete
	require.NoError(t, s.UpdateAudit(ctx, rec))

	got, err := s.GetAudit(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, audit.StatusComplete, got.Status)

	_, err = s.GetAudit(ctx, "missing")
	assert.Error(t, err)
	assert.Error(t, s.UpdateAudit(ctx, audit.Record{ID: "missing"}))
}

func TestResultRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetResult(ctx, "a1")
	assert.Error(t, err)

	res := audit.Result{AuditID: "a1", Overall: audit.OverallScore{Score: 88, Grade: "B"}}
	require.NoError(t, s.SaveResult(ctx, res))

	got, err := s.GetResult(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, res.Overall, got.Overall)
}

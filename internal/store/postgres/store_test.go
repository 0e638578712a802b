package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestCreateAudit(t *testing.T) {
	store, mock := newMockStore(t)
	submitted := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO audits").
		WithArgs("audit-1", "https://example.com", "queued", submitted).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.CreateAudit(context.Background(), audit.Record{
		ID:        "audit-1",
		RootURL:   "https://example.com",
		Status:    audit.StatusQueued,
		Submitted: submitted,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAuditNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE audits").
		WithArgs("missing", "complete", (*time.Time)(nil), (*time.Time)(nil), "", 0, 0.0, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateAudit(context.Background(), audit.Record{
		ID:     "missing",
		Status: audit.StatusComplete,
	})
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAudit(t *testing.T) {
	store, mock := newMockStore(t)
	submitted := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	started := submitted.Add(time.Second)
	finished := submitted.Add(time.Minute)

	rows := pgxmock.NewRows([]string{
		"id", "root_url", "status", "submitted_at", "started_at", "finished_at",
		"error_text", "pages_crawled", "overall_score", "overall_grade",
	}).AddRow("audit-1", "https://example.com", "complete", submitted, &started, &finished,
		"", 42, 87.5, "B")

	mock.ExpectQuery("SELECT id, root_url, status").
		WithArgs("audit-1").
		WillReturnRows(rows)

	rec, err := store.GetAudit(context.Background(), "audit-1")
	require.NoError(t, err)
	assert.Equal(t, audit.StatusComplete, rec.Status)
	assert.Equal(t, 42, rec.PagesCrawled)
	assert.Equal(t, 87.5, rec.OverallScore)
	assert.Equal(t, "B", rec.OverallGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAndGetResult(t *testing.T) {
	store, mock := newMockStore(t)

	result := audit.Result{
		AuditID: "audit-1",
		RootURL: "https://example.com",
		Overall: audit.OverallScore{Score: 91, Grade: "A"},
	}
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO audit_results").
		WithArgs("audit-1", payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.SaveResult(context.Background(), result))

	mock.ExpectQuery("SELECT result").
		WithArgs("audit-1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(payload))

	got, err := store.GetResult(context.Background(), "audit-1")
	require.NoError(t, err)
	assert.Equal(t, result.Overall, got.Overall)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResultNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT result").
		WithArgs("missing").
		WillReturnError(assert.AnError)

	_, err := store.GetResult(context.Background(), "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

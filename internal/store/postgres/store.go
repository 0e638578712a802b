// Package postgres persists audit records and results in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements audit.Store on PostgreSQL. Results are stored as a
// single JSONB document per audit; the record row carries the queryable
// lifecycle columns.
type Store struct {
	db DB
}

// New wraps an existing connection pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pool from a DSN and wraps it.
func Connect(ctx context.Context, dsn string, maxConns int32) (*Store, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(pool), pool, nil
}

const createAuditSQL = `
INSERT INTO audits (id, root_url, status, submitted_at)
VALUES ($1, $2, $3, $4)`

// CreateAudit inserts a new audit row.
func (s *Store) CreateAudit(ctx context.Context, rec audit.Record) error {
	_, err := s.db.Exec(ctx, createAuditSQL, rec.ID, rec.RootURL, string(rec.Status), rec.Submitted)
	if err != nil {
		return fmt.Errorf("insert audit %s: %w", rec.ID, err)
	}
	return nil
}

const updateAuditSQL = `
UPDATE audits
SET status = $2,
    started_at = $3,
    finished_at = $4,
    error_text = $5,
    pages_crawled = $6,
    overall_score = $7,
    overall_grade = $8
WHERE id = $1`

// UpdateAudit updates the lifecycle columns of an existing row.
func (s *Store) UpdateAudit(ctx context.Context, rec audit.Record) error {
	tag, err := s.db.Exec(ctx, updateAuditSQL,
		rec.ID, string(rec.Status), rec.Started, rec.Finished,
		rec.ErrorText, rec.PagesCrawled, rec.OverallScore, rec.OverallGrade)
	if err != nil {
		return fmt.Errorf("update audit %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("audit %s not found", rec.ID)
	}
	return nil
}

const getAuditSQL = `
SELECT id, root_url, status, submitted_at, started_at, finished_at,
       error_text, pages_crawled, overall_score, overall_grade
FROM audits
WHERE id = $1`

// GetAudit fetches one audit row.
func (s *Store) GetAudit(ctx context.Context, auditID string) (audit.Record, error) {
	var (
		rec    audit.Record
		status string
	)
	err := s.db.QueryRow(ctx, getAuditSQL, auditID).Scan(
		&rec.ID, &rec.RootURL, &status, &rec.Submitted, &rec.Started, &rec.Finished,
		&rec.ErrorText, &rec.PagesCrawled, &rec.OverallScore, &rec.OverallGrade)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Record{}, fmt.Errorf("audit %s not found", auditID)
		}
		return audit.Record{}, fmt.Errorf("select audit %s: %w", auditID, err)
	}
	rec.Status = audit.Status(status)
	return rec, nil
}

const saveResultSQL = `
INSERT INTO audit_results (audit_id, result)
VALUES ($1, $2)
ON CONFLICT (audit_id) DO UPDATE SET result = EXCLUDED.result`

// SaveResult upserts the result document.
func (s *Store) SaveResult(ctx context.Context, result audit.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", result.AuditID, err)
	}
	if _, err := s.db.Exec(ctx, saveResultSQL, result.AuditID, payload); err != nil {
		return fmt.Errorf("upsert result %s: %w", result.AuditID, err)
	}
	return nil
}

const getResultSQL = `
SELECT result
FROM audit_results
WHERE audit_id = $1`

// GetResult loads and decodes the result document.
func (s *Store) GetResult(ctx context.Context, auditID string) (audit.Result, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, getResultSQL, auditID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Result{}, fmt.Errorf("result for audit %s not found", auditID)
		}
		return audit.Result{}, fmt.Errorf("select result %s: %w", auditID, err)
	}
	var result audit.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return audit.Result{}, fmt.Errorf("decode result %s: %w", auditID, err)
	}
	return result, nil
}

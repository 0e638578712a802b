// Package memory provides an in-process audit store, used in tests
// and single-node deployments without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// Store keeps audit records and results in maps guarded by one mutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]audit.Record
	results map[string]audit.Result
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]audit.Record),
		results: make(map[string]audit.Result),
	}
}

// CreateAudit inserts a new record; duplicate ids are an error.
func (s *Store) CreateAudit(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("audit %s already exists", rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// UpdateAudit replaces an existing record.
func (s *Store) UpdateAudit(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; !exists {
		return fmt.Errorf("audit %s not found", rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// GetAudit fetches a record by id.
func (s *Store) GetAudit(_ context.Context, auditID string) (audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[auditID]
	if !ok {
		return audit.Record{}, fmt.Errorf("audit %s not found", auditID)
	}
	return rec, nil
}

// SaveResult stores the full result for an audit, overwriting any
// previous run.
func (s *Store) SaveResult(_ context.Context, result audit.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.AuditID] = result
	return nil
}

// GetResult fetches a stored result.
func (s *Store) GetResult(_ context.Context, auditID string) (audit.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[auditID]
	if !ok {
		return audit.Result{}, fmt.Errorf("result for audit %s not found", auditID)
	}
	return res, nil
}

// List returns every record, for the API's audit listing.
func (s *Store) List(_ context.Context) []audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

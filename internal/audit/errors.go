package audit

import (
	"errors"
	"fmt"
)

// Pipeline-fatal conditions. Per-page and per-category failures are
// absorbed into stats and engine status; only these surface as errors
// of the whole audit.
var (
	// ErrNoPagesCrawled means the traversal fetched zero pages.
	ErrNoPagesCrawled = errors.New("no pages crawled")
	// ErrAllCategoriesFailed means every category engine failed, so
	// the overall score is undefined.
	ErrAllCategoriesFailed = errors.New("all category engines failed")
	// ErrCanceled means the audit was aborted by an external signal.
	ErrCanceled = errors.New("audit canceled")
)

// Failure wraps a pipeline-fatal error with the audit it belongs to.
type Failure struct {
	AuditID string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("audit %s: %v", f.AuditID, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a Failure for the given audit.
func NewFailure(auditID string, err error) *Failure {
	return &Failure{AuditID: auditID, Err: err}
}

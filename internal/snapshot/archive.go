package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// Archiver stores raw page bodies under a stable per-audit layout:
// <prefix>/<audit_id>/<url-hash>.html. Archiving is best effort; a
// failed upload is logged and never fails the audit.
type Archiver struct {
	store  audit.BlobStore
	prefix string
	logger *zap.Logger
}

// NewArchiver builds an Archiver; store may be nil to disable
// archiving entirely.
func NewArchiver(store audit.BlobStore, prefix string, logger *zap.Logger) *Archiver {
	if prefix == "" {
		prefix = "audits"
	}
	return &Archiver{store: store, prefix: prefix, logger: logger}
}

// Enabled reports whether a backing store is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.store != nil
}

// Archive uploads one page body and returns the object URI.
func (a *Archiver) Archive(ctx context.Context, auditID, pageURL string, body []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	path := fmt.Sprintf("%s/%s/%s.html", a.prefix, auditID, hashURL(pageURL))
	uri, err := a.store.PutObject(ctx, path, "text/html; charset=utf-8", body)
	if err != nil {
		a.logger.Warn("snapshot upload failed",
			zap.String("audit_id", auditID),
			zap.String("url", pageURL),
			zap.Error(err))
		return "", err
	}
	return uri, nil
}

func hashURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:16])
}

// Package dispatcher queues audits and runs them on a bounded worker
// pool, with per-audit cancellation.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/auditor"
	"github.com/JakeFAU/seo-auditor/internal/crawler"
)

// Dispatcher accepts audit submissions over a bounded queue and feeds
// them to worker goroutines. Each running audit registers a cancel
// func so the API can abort it mid-flight.
type Dispatcher struct {
	auditor *auditor.Auditor
	store   audit.Store
	queue   chan audit.Record
	logger  *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// New builds a Dispatcher and starts its workers.
func New(a *auditor.Auditor, store audit.Store, workers, queueDepth int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = 16
	}
	d := &Dispatcher{
		auditor:  a,
		store:    store,
		queue:    make(chan audit.Record, queueDepth),
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
		shutdown: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Submit validates the root URL, persists a queued record, and
// enqueues it. A full queue rejects immediately rather than blocking
// the caller.
func (d *Dispatcher) Submit(ctx context.Context, rootURL string) (audit.Record, error) {
	normalized, err := crawler.Normalize(rootURL, "")
	if err != nil {
		return audit.Record{}, fmt.Errorf("invalid root url: %w", err)
	}

	rec := audit.Record{
		ID:        uuid.NewString(),
		RootURL:   normalized,
		Status:    audit.StatusQueued,
		Submitted: time.Now().UTC(),
	}
	if err := d.store.CreateAudit(ctx, rec); err != nil {
		return audit.Record{}, err
	}

	select {
	case d.queue <- rec:
		d.logger.Info("audit queued",
			zap.String("audit_id", rec.ID),
			zap.String("root_url", rec.RootURL))
		return rec, nil
	default:
		rec.Status = audit.StatusFailed
		rec.ErrorText = "audit queue full"
		if uerr := d.store.UpdateAudit(ctx, rec); uerr != nil {
			d.logger.Error("failed to mark rejected audit", zap.Error(uerr))
		}
		return audit.Record{}, fmt.Errorf("audit queue full")
	}
}

// Cancel aborts a running audit. Queued audits cancel when a worker
// picks them up and observes the tombstone status.
func (d *Dispatcher) Cancel(ctx context.Context, auditID string) error {
	d.mu.Lock()
	cancel, ok := d.running[auditID]
	d.mu.Unlock()
	if ok {
		cancel()
		return nil
	}

	rec, err := d.store.GetAudit(ctx, auditID)
	if err != nil {
		return err
	}
	if rec.Status != audit.StatusQueued {
		return fmt.Errorf("audit %s is %s, not cancelable", auditID, rec.Status)
	}
	rec.Status = audit.StatusCanceled
	return d.store.UpdateAudit(ctx, rec)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.shutdown:
			return
		case rec := <-d.queue:
			d.runOne(id, rec)
		}
	}
}

func (d *Dispatcher) runOne(workerID int, rec audit.Record) {
	// Canceled while still queued: skip without running.
	if current, err := d.store.GetAudit(context.Background(), rec.ID); err == nil &&
		current.Status == audit.StatusCanceled {
		d.logger.Info("skipping canceled audit", zap.String("audit_id", rec.ID))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.running[rec.ID] = cancel
	d.mu.Unlock()
	defer func() {
		cancel()
		d.mu.Lock()
		delete(d.running, rec.ID)
		d.mu.Unlock()
	}()

	d.logger.Info("worker picked up audit",
		zap.Int("worker", workerID),
		zap.String("audit_id", rec.ID))

	if _, err := d.auditor.Run(ctx, rec); err != nil {
		d.logger.Warn("audit run finished with error",
			zap.String("audit_id", rec.ID),
			zap.Error(err))
	}
}

// Shutdown stops accepting new work and waits for in-flight audits.
func (d *Dispatcher) Shutdown() {
	d.once.Do(func() {
		close(d.shutdown)
	})
	d.wg.Wait()
}

package services

import (
	"context"
	"log"
	"time"

	"qrtrace-backend/internal/cache"
	"qrtrace-backend/internal/metrics"
	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/reconcile"
)

// WorkerNotifier triggers the downstream replacement worker. Notification is
// best-effort: the worker also polls on a schedule, so a failed notify only
// delays processing.
type WorkerNotifier interface {
	Notify(ctx context.Context, jobIDs []string) error
}

// ReconcileService runs the reconciliation engine against the live stores and
// handles the side concerns the engine stays free of: batch-metadata caching,
// metrics, and worker notification.
type ReconcileService struct {
	engine   *reconcile.Engine
	notifier WorkerNotifier
}

func NewReconcileService(codes reconcile.CodeStore, jobs reconcile.JobStore, notifier WorkerNotifier) *ReconcileService {
	return &ReconcileService{
		engine:   reconcile.NewEngine(&cachingCodeStore{inner: codes}, jobs),
		notifier: notifier,
	}
}

// Analyze previews a reconciliation without writing anything.
func (s *ReconcileService) Analyze(ctx context.Context, req *models.ReconcileRequest) (*reconcile.Analysis, error) {
	return s.engine.Analyze(ctx, req.OrderID, req.BatchID, req.SpoiledInput)
}

// CreateJobs materializes replacement jobs and fires the worker notification
// for whatever was created. Per-case failures are inside the result, not the
// returned error.
func (s *ReconcileService) CreateJobs(ctx context.Context, req *models.ReconcileRequest, userID int) (*reconcile.Result, error) {
	result, err := s.engine.Execute(ctx, req.OrderID, req.BatchID, req.SpoiledInput, userID)
	if err != nil {
		return nil, err
	}

	for _, j := range result.Jobs {
		metrics.ReverseJobsTotal.WithLabelValues(j.Status).Inc()
		if j.Status == reconcile.CaseCreated {
			metrics.CodesSpoiledTotal.Add(float64(j.SpoiledCount))
		}
	}

	if ids := result.CreatedJobIDs(); len(ids) > 0 && s.notifier != nil {
		// Fire and forget; the request must not wait on the worker.
		go func(jobIDs []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.Notify(ctx, jobIDs); err != nil {
				metrics.WorkerNotifyFailures.Inc()
				log.Printf("[Worker] notify failed for %d job(s): %v (worker will pick them up on schedule)", len(jobIDs), err)
			}
		}(ids)
	}

	return result, nil
}

// cachingCodeStore caches batch metadata in Redis; the batch row is immutable
// after generation so a TTL'd copy is safe. Code lookups always hit the
// database: code status is the thing this engine exists to get right.
type cachingCodeStore struct {
	inner reconcile.CodeStore
}

func (c *cachingCodeStore) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	if batch, ok := cache.GetBatchMeta(ctx, batchID); ok {
		return batch, nil
	}

	batch, err := c.inner.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	cache.SetBatchMeta(ctx, batch)
	return batch, nil
}

func (c *cachingCodeStore) LookupCodes(ctx context.Context, batchID string, seqs []int) (map[int]*models.QRCode, error) {
	return c.inner.LookupCodes(ctx, batchID, seqs)
}

func (c *cachingCodeStore) CountAvailableBuffers(ctx context.Context, batchID string, caseNumber int) (int, error) {
	return c.inner.CountAvailableBuffers(ctx, batchID, caseNumber)
}

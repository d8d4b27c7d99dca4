package reconcile

import (
	"context"

	"qrtrace-backend/internal/models"
)

// CodeStore is the read side of the code registry. The pgx repository
// implements it in production; tests use an in-memory fake.
type CodeStore interface {
	// GetBatch returns the batch with its order number populated.
	GetBatch(ctx context.Context, batchID string) (*models.Batch, error)

	// LookupCodes resolves codes by sequence number within a batch. Sequences
	// with no row are simply absent from the result map. Callers chunk the
	// sequence list; len(seqs) never exceeds LookupChunkSize.
	LookupCodes(ctx context.Context, batchID string, seqs []int) (map[int]*models.QRCode, error)

	// CountAvailableBuffers counts buffer codes still available for a case.
	CountAvailableBuffers(ctx context.Context, batchID string, caseNumber int) (int, error)
}

// ReplacementUse records where a buffer code was previously consumed.
type ReplacementUse struct {
	JobID             string
	SpoiledSequenceNo int
}

// JobStore is the job side of the engine's persistence.
type JobStore interface {
	// FindActiveJob returns the queued/processing/completed job for a case,
	// or nil when none exists.
	FindActiveJob(ctx context.Context, batchID string, caseNumber int) (*models.ReverseJob, error)

	// FindReplacementUse locates the prior job item that consumed the given
	// buffer sequence, or nil when unknown.
	FindReplacementUse(ctx context.Context, batchID string, replacementSeq int) (*ReplacementUse, error)

	// CreateJob persists the job header and its items in one transaction and
	// flips the referenced codes to spoiled / buffer_used. Returns
	// ErrDuplicateJob when the per-case unique index rejects the header.
	CreateJob(ctx context.Context, job *models.ReverseJob, spoiledCodeIDs, bufferCodeIDs []string) error
}

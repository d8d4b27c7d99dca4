package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/reconcile"
)

type JobRepository struct {
	DB *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{DB: db}
}

// FindActiveJob returns the queued/processing/completed job for a case, or
// nil when none exists. Failed jobs don't count: the case may be retried.
func (r *JobRepository) FindActiveJob(ctx context.Context, batchID string, caseNumber int) (*models.ReverseJob, error) {
	query := `
		SELECT id, batch_id, order_id, case_number, status, created_by, created_at, completed_at
		FROM reverse_jobs
		WHERE batch_id = $1 AND case_number = $2
		  AND status IN ('queued', 'processing', 'completed')
		ORDER BY created_at DESC
		LIMIT 1
	`

	job := &models.ReverseJob{}
	err := r.DB.QueryRow(ctx, query, batchID, caseNumber).Scan(
		&job.ID, &job.BatchID, &job.OrderID, &job.CaseNumber,
		&job.Status, &job.CreatedBy, &job.CreatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

// FindReplacementUse locates the prior job item that consumed a buffer code,
// so BUFFER_ALREADY_USED errors can name the spoiled sequence it replaced.
func (r *JobRepository) FindReplacementUse(ctx context.Context, batchID string, replacementSeq int) (*reconcile.ReplacementUse, error) {
	query := `
		SELECT i.job_id, i.spoiled_sequence_no
		FROM reverse_job_items i
		JOIN reverse_jobs j ON i.job_id = j.id
		WHERE j.batch_id = $1 AND i.replacement_sequence_no = $2
		ORDER BY j.created_at DESC
		LIMIT 1
	`

	use := &reconcile.ReplacementUse{}
	err := r.DB.QueryRow(ctx, query, batchID, replacementSeq).Scan(&use.JobID, &use.SpoiledSequenceNo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return use, nil
}

// CreateJob inserts the job header and its items in one transaction and
// flips the referenced codes to spoiled / buffer_used. The partial unique
// index on (batch_id, case_number) resolves concurrent creates: a 23505 on
// the header insert surfaces as reconcile.ErrDuplicateJob.
func (r *JobRepository) CreateJob(ctx context.Context, job *models.ReverseJob, spoiledCodeIDs, bufferCodeIDs []string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	headerQuery := `
		INSERT INTO reverse_jobs (id, batch_id, order_id, case_number, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, headerQuery,
		job.ID, job.BatchID, job.OrderID, job.CaseNumber, job.Status, job.CreatedBy,
	).Scan(&job.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return reconcile.ErrDuplicateJob
		}
		return fmt.Errorf("failed to insert job header: %w", err)
	}

	itemQuery := `
		INSERT INTO reverse_job_items (id, job_id, spoiled_sequence_no, replacement_code_id, replacement_sequence_no, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range job.Items {
		item := &job.Items[i]
		item.ID = uuid.NewString()
		_, err := tx.Exec(ctx, itemQuery,
			item.ID, job.ID, item.SpoiledSequenceNo,
			item.ReplacementCodeID, item.ReplacementSequenceNo, item.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job item (spoiled %d): %w", item.SpoiledSequenceNo, err)
		}
	}

	if len(spoiledCodeIDs) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE qr_codes SET status = 'spoiled', updated_at = CURRENT_TIMESTAMP
			WHERE id = ANY($1)
		`, spoiledCodeIDs)
		if err != nil {
			return fmt.Errorf("failed to mark codes spoiled: %w", err)
		}
	}

	if len(bufferCodeIDs) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE qr_codes SET status = 'buffer_used', updated_at = CURRENT_TIMESTAMP
			WHERE id = ANY($1)
		`, bufferCodeIDs)
		if err != nil {
			return fmt.Errorf("failed to mark buffers used: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetJob retrieves one job with its items
func (r *JobRepository) GetJob(ctx context.Context, id string) (*models.ReverseJob, error) {
	query := `
		SELECT id, batch_id, order_id, case_number, status, created_by, created_at, completed_at
		FROM reverse_jobs
		WHERE id = $1
	`

	job := &models.ReverseJob{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.BatchID, &job.OrderID, &job.CaseNumber,
		&job.Status, &job.CreatedBy, &job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT id, job_id, spoiled_sequence_no, replacement_code_id, replacement_sequence_no, status
		FROM reverse_job_items
		WHERE job_id = $1
		ORDER BY spoiled_sequence_no
	`
	rows, err := r.DB.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.ReverseJobItem
		err := rows.Scan(
			&item.ID, &item.JobID, &item.SpoiledSequenceNo,
			&item.ReplacementCodeID, &item.ReplacementSequenceNo, &item.Status,
		)
		if err != nil {
			return nil, err
		}
		job.Items = append(job.Items, item)
	}

	return job, rows.Err()
}

// ListJobsByBatch retrieves all jobs for a batch in case order
func (r *JobRepository) ListJobsByBatch(ctx context.Context, batchID string) ([]models.ReverseJob, error) {
	query := `
		SELECT j.id, j.batch_id, j.order_id, j.case_number, j.status, j.created_by, j.created_at, j.completed_at,
		       (SELECT COUNT(*) FROM reverse_job_items i WHERE i.job_id = j.id) AS item_count
		FROM reverse_jobs j
		WHERE j.batch_id = $1
		ORDER BY j.case_number, j.created_at
	`

	rows, err := r.DB.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.ReverseJob
	for rows.Next() {
		var job models.ReverseJob
		var itemCount int
		err := rows.Scan(
			&job.ID, &job.BatchID, &job.OrderID, &job.CaseNumber,
			&job.Status, &job.CreatedBy, &job.CreatedAt, &job.CompletedAt,
			&itemCount,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// DeleteJob removes a queued job and its items (cascade). Jobs the worker
// has picked up cannot be deleted.
func (r *JobRepository) DeleteJob(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM reverse_jobs WHERE id = $1 AND status = 'queued'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("job not found or no longer queued")
	}
	return nil
}

// CompletedJobsSince retrieves jobs completed after the cutoff, with items,
// for the archive snapshot.
func (r *JobRepository) CompletedJobsSince(ctx context.Context, since string) ([]models.ReverseJob, error) {
	query := `
		SELECT id, batch_id, order_id, case_number, status, created_by, created_at, completed_at
		FROM reverse_jobs
		WHERE status = 'completed' AND completed_at > $1::timestamptz
		ORDER BY completed_at
	`

	rows, err := r.DB.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.ReverseJob
	for rows.Next() {
		var job models.ReverseJob
		err := rows.Scan(
			&job.ID, &job.BatchID, &job.OrderID, &job.CaseNumber,
			&job.Status, &job.CreatedBy, &job.CreatedAt, &job.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

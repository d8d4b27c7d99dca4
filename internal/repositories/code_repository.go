package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qrtrace-backend/internal/models"
)

type CodeRepository struct {
	DB *pgxpool.Pool
}

func NewCodeRepository(db *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{DB: db}
}

// GetBatch retrieves a batch with its order number joined in
func (r *CodeRepository) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	query := `
		SELECT b.id, b.order_id, o.order_no, b.units_per_case, b.buffer_per_case,
		       b.case_count, b.status, b.created_at
		FROM batches b
		JOIN orders o ON b.order_id = o.id
		WHERE b.id = $1
	`

	batch := &models.Batch{}
	err := r.DB.QueryRow(ctx, query, batchID).Scan(
		&batch.ID, &batch.OrderID, &batch.OrderNo, &batch.UnitsPerCase,
		&batch.BufferPerCase, &batch.CaseCount, &batch.Status, &batch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %s: %w", batchID, err)
	}

	return batch, nil
}

// LookupCodes resolves codes by sequence number within a batch. Sequences
// without a row are simply absent from the returned map.
func (r *CodeRepository) LookupCodes(ctx context.Context, batchID string, seqs []int) (map[int]*models.QRCode, error) {
	query := `
		SELECT id, batch_id, sequence_number, case_number, is_buffer, status, created_at, updated_at
		FROM qr_codes
		WHERE batch_id = $1 AND sequence_number = ANY($2)
	`

	rows, err := r.DB.Query(ctx, query, batchID, seqs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[int]*models.QRCode)
	for rows.Next() {
		code := &models.QRCode{}
		err := rows.Scan(
			&code.ID, &code.BatchID, &code.SequenceNumber, &code.CaseNumber,
			&code.IsBuffer, &code.Status, &code.CreatedAt, &code.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		codes[code.SequenceNumber] = code
	}

	return codes, rows.Err()
}

// CountAvailableBuffers counts buffer codes still available for a case
func (r *CodeRepository) CountAvailableBuffers(ctx context.Context, batchID string, caseNumber int) (int, error) {
	query := `
		SELECT COUNT(*) FROM qr_codes
		WHERE batch_id = $1 AND case_number = $2 AND is_buffer AND status = 'buffer_available'
	`

	var count int
	err := r.DB.QueryRow(ctx, query, batchID, caseNumber).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// BulkInsertCodes inserts generated codes via COPY; used at batch generation
func (r *CodeRepository) BulkInsertCodes(ctx context.Context, codes []models.QRCode) (int64, error) {
	rows := make([][]interface{}, len(codes))
	for i, c := range codes {
		rows[i] = []interface{}{c.ID, c.BatchID, c.SequenceNumber, c.CaseNumber, c.IsBuffer, c.Status}
	}

	copied, err := r.DB.CopyFrom(ctx,
		pgx.Identifier{"qr_codes"},
		[]string{"id", "batch_id", "sequence_number", "case_number", "is_buffer", "status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk code insert failed: %w", err)
	}

	return copied, nil
}

// ListCodesByCase retrieves all codes for one case in sequence order
func (r *CodeRepository) ListCodesByCase(ctx context.Context, batchID string, caseNumber int) ([]models.QRCode, error) {
	query := `
		SELECT id, batch_id, sequence_number, case_number, is_buffer, status, created_at, updated_at
		FROM qr_codes
		WHERE batch_id = $1 AND case_number = $2
		ORDER BY is_buffer, sequence_number
	`

	rows, err := r.DB.Query(ctx, query, batchID, caseNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []models.QRCode
	for rows.Next() {
		var code models.QRCode
		err := rows.Scan(
			&code.ID, &code.BatchID, &code.SequenceNumber, &code.CaseNumber,
			&code.IsBuffer, &code.Status, &code.CreatedAt, &code.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// CountCodesByStatus returns per-status counts for a batch (dashboard view)
func (r *CodeRepository) CountCodesByStatus(ctx context.Context, batchID string) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*) FROM qr_codes
		WHERE batch_id = $1
		GROUP BY status
	`

	rows, err := r.DB.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

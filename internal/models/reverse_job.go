package models

import "time"

// Reverse job statuses. This service only ever creates jobs in "queued" and
// detects pre-existing "completed"; the downstream replacement worker owns the
// queued -> processing -> completed|failed transitions.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

type ReverseJob struct {
	ID          string           `json:"id" db:"id"`
	BatchID     string           `json:"batch_id" db:"batch_id"`
	OrderID     string           `json:"order_id" db:"order_id"`
	CaseNumber  int              `json:"case_number" db:"case_number"`
	Status      string           `json:"status" db:"status"`
	CreatedBy   int              `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	Items       []ReverseJobItem `json:"items,omitempty" db:"-"`
}

type ReverseJobItem struct {
	ID                    string  `json:"id" db:"id"`
	JobID                 string  `json:"job_id" db:"job_id"`
	SpoiledSequenceNo     int     `json:"spoiled_sequence_no" db:"spoiled_sequence_no"`
	ReplacementCodeID     *string `json:"replacement_code_id,omitempty" db:"replacement_code_id"`
	ReplacementSequenceNo *int    `json:"replacement_sequence_no,omitempty" db:"replacement_sequence_no"`
	Status                string  `json:"status" db:"status"` // "pending" until the worker resolves it
}

type ReconcileRequest struct {
	OrderID      string `json:"order_id"`
	BatchID      string `json:"batch_id"`
	SpoiledInput string `json:"spoiled_input"`
}

package models

import "time"

// QR code lifecycle statuses. The database row is the authority on a unit's
// case assignment and state; case_number is never derived from arithmetic
// because buffer units are assigned to cases out-of-band.
const (
	CodeStatusGenerated       = "generated"
	CodeStatusAvailable       = "available"
	CodeStatusBufferAvailable = "buffer_available"
	CodeStatusSpoiled         = "spoiled"
	CodeStatusBufferUsed      = "buffer_used"
	CodeStatusPacked          = "packed"
)

type QRCode struct {
	ID             string    `json:"id" db:"id"`
	BatchID        string    `json:"batch_id" db:"batch_id"`
	SequenceNumber int       `json:"sequence_number" db:"sequence_number"`
	CaseNumber     *int      `json:"case_number,omitempty" db:"case_number"`
	IsBuffer       bool      `json:"is_buffer" db:"is_buffer"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

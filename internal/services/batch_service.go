package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/repositories"
)

type BatchService struct {
	BatchRepo *repositories.BatchRepository
	CodeRepo  *repositories.CodeRepository
}

func NewBatchService(batchRepo *repositories.BatchRepository, codeRepo *repositories.CodeRepository) *BatchService {
	return &BatchService{
		BatchRepo: batchRepo,
		CodeRepo:  codeRepo,
	}
}

// CreateBatch creates an order (unless an existing one is referenced), the
// batch header, and the full code registry: case_count * units_per_case
// primary codes plus buffer_per_case buffers per case. Buffers get their case
// assignment here, at generation time; after this point the registry row is
// the only authority on which case a unit belongs to.
func (s *BatchService) CreateBatch(ctx context.Context, req *models.CreateBatchRequest) (*models.Batch, error) {
	if req.CaseCount <= 0 || req.UnitsPerCase <= 0 {
		return nil, errors.New("case_count and units_per_case must be positive")
	}
	if req.BufferPerCase < 0 {
		return nil, errors.New("buffer_per_case cannot be negative")
	}

	orderID := req.OrderID
	if orderID == "" {
		if req.OrderNo == "" {
			return nil, errors.New("order_id or order_no is required")
		}
		existing, err := s.BatchRepo.GetOrderByNo(ctx, req.OrderNo)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			orderID = existing.ID
		} else {
			order := &models.Order{
				ID:          uuid.NewString(),
				OrderNo:     req.OrderNo,
				ProductName: req.ProductName,
			}
			if err := s.BatchRepo.CreateOrder(ctx, order); err != nil {
				return nil, err
			}
			orderID = order.ID
		}
	}

	batch := &models.Batch{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		UnitsPerCase:  req.UnitsPerCase,
		BufferPerCase: req.BufferPerCase,
		CaseCount:     req.CaseCount,
		Status:        "generated",
	}
	if err := s.BatchRepo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	codes := generateCodes(batch)
	inserted, err := s.CodeRepo.BulkInsertCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	log.Printf("[Batch] generated batch %s: %d codes (%d cases x %d units + %d buffers/case)",
		batch.ID, inserted, batch.CaseCount, batch.UnitsPerCase, batch.BufferPerCase)

	return batch, nil
}

// generateCodes lays out sequence numbers: primaries 1..caseCount*unitsPerCase
// in case order, then the buffer block, buffer_per_case per case.
func generateCodes(batch *models.Batch) []models.QRCode {
	total := batch.CaseCount*batch.UnitsPerCase + batch.CaseCount*batch.BufferPerCase
	codes := make([]models.QRCode, 0, total)

	seq := 1
	for caseNo := 1; caseNo <= batch.CaseCount; caseNo++ {
		c := caseNo
		for u := 0; u < batch.UnitsPerCase; u++ {
			codes = append(codes, models.QRCode{
				ID:             uuid.NewString(),
				BatchID:        batch.ID,
				SequenceNumber: seq,
				CaseNumber:     &c,
				IsBuffer:       false,
				Status:         models.CodeStatusAvailable,
			})
			seq++
		}
	}
	for caseNo := 1; caseNo <= batch.CaseCount; caseNo++ {
		c := caseNo
		for b := 0; b < batch.BufferPerCase; b++ {
			codes = append(codes, models.QRCode{
				ID:             uuid.NewString(),
				BatchID:        batch.ID,
				SequenceNumber: seq,
				CaseNumber:     &c,
				IsBuffer:       true,
				Status:         models.CodeStatusBufferAvailable,
			})
			seq++
		}
	}

	return codes
}

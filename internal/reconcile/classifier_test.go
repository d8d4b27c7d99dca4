package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrtrace-backend/internal/models"
)

// recordingCodeStore is the in-memory CodeStore used across this package's
// tests. It tracks every LookupCodes call for chunk assertions.
type recordingCodeStore struct {
	batch      *models.Batch
	codes      map[int]*models.QRCode
	buffers    map[int]int // available buffers per case
	chunkSizes []int
}

func (s *recordingCodeStore) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	return s.batch, nil
}

func (s *recordingCodeStore) LookupCodes(ctx context.Context, batchID string, seqs []int) (map[int]*models.QRCode, error) {
	s.chunkSizes = append(s.chunkSizes, len(seqs))
	out := make(map[int]*models.QRCode)
	for _, seq := range seqs {
		if c, ok := s.codes[seq]; ok {
			out[seq] = c
		}
	}
	return out, nil
}

func (s *recordingCodeStore) CountAvailableBuffers(ctx context.Context, batchID string, caseNumber int) (int, error) {
	return s.buffers[caseNumber], nil
}

func testBatch() *models.Batch {
	return &models.Batch{
		ID:            "batch-1",
		OrderID:       "order-1",
		OrderNo:       "ORD-100",
		UnitsPerCase:  100,
		BufferPerCase: 5,
		CaseCount:     10,
	}
}

func TestClassifyFiltersWrongOrderEntries(t *testing.T) {
	store := &recordingCodeStore{
		batch: testBatch(),
		codes: map[int]*models.QRCode{
			1: code("a", 1, caseNo(1), false, models.CodeStatusAvailable),
		},
	}
	entries := []Entry{
		{Raw: "https://x/q/ORD-100/1", OrderNo: "ORD-100", SequenceNo: 1},
		{Raw: "https://x/q/ORD-999/2", OrderNo: "ORD-999", SequenceNo: 2},
	}

	c, err := Classify(context.Background(), store, store.batch, entries)
	require.NoError(t, err)
	require.Len(t, c.Entries, 1)
	assert.Equal(t, 1, c.Entries[0].SequenceNo)
	assert.Equal(t, []string{"https://x/q/ORD-999/2"}, c.WrongOrder)
}

func TestClassifyOrderNumberCaseInsensitive(t *testing.T) {
	store := &recordingCodeStore{
		batch: testBatch(),
		codes: map[int]*models.QRCode{
			1: code("a", 1, caseNo(1), false, models.CodeStatusAvailable),
		},
	}
	entries := []Entry{{Raw: "u", OrderNo: "ord-100", SequenceNo: 1}}

	c, err := Classify(context.Background(), store, store.batch, entries)
	require.NoError(t, err)
	assert.Len(t, c.Entries, 1)
	assert.Empty(t, c.WrongOrder)
}

func TestClassifyMissingSequencesAbort(t *testing.T) {
	store := &recordingCodeStore{
		batch: testBatch(),
		codes: map[int]*models.QRCode{
			1: code("a", 1, caseNo(1), false, models.CodeStatusAvailable),
		},
	}
	entries := []Entry{{SequenceNo: 1}, {SequenceNo: 999}, {SequenceNo: 500}}

	_, err := Classify(context.Background(), store, store.batch, entries)
	require.Error(t, err)

	engineErr, ok := AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCodesNotFound, engineErr.Code)
	assert.Contains(t, engineErr.Message, "500, 999")
}

func TestClassifyChunksLargeInputs(t *testing.T) {
	store := &recordingCodeStore{
		batch: testBatch(),
		codes: make(map[int]*models.QRCode),
	}

	var entries []Entry
	for seq := 1; seq <= 2500; seq++ {
		store.codes[seq] = code("id", seq, caseNo(1), false, models.CodeStatusAvailable)
		entries = append(entries, Entry{SequenceNo: seq})
	}
	// Duplicates must not inflate the lookup
	entries = append(entries, Entry{SequenceNo: 1}, Entry{SequenceNo: 2})

	c, err := Classify(context.Background(), store, store.batch, entries)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1000, 500}, store.chunkSizes)
	assert.Len(t, c.Records, 2500)
}

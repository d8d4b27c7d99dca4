package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrtrace-backend/internal/models"
)

func code(id string, seq int, caseNo *int, buffer bool, status string) *models.QRCode {
	return &models.QRCode{
		ID:             id,
		BatchID:        "batch-1",
		SequenceNumber: seq,
		CaseNumber:     caseNo,
		IsBuffer:       buffer,
		Status:         status,
	}
}

func caseNo(n int) *int { return &n }

func TestGroupBucketsByRegistryCase(t *testing.T) {
	records := map[int]*models.QRCode{
		1:   code("a", 1, caseNo(1), false, models.CodeStatusAvailable),
		2:   code("b", 2, caseNo(2), false, models.CodeStatusAvailable),
		101: code("c", 101, caseNo(1), true, models.CodeStatusBufferAvailable),
	}
	entries := []Entry{{SequenceNo: 1}, {SequenceNo: 2}, {SequenceNo: 101}}

	groups, warnings := Group(entries, records)
	assert.Empty(t, warnings)
	require.Len(t, groups, 2)
	assert.Len(t, groups[1].Spoiled, 1)
	assert.Len(t, groups[1].Buffers, 1)
	assert.Len(t, groups[2].Spoiled, 1)
	assert.Empty(t, groups[2].Buffers)
}

func TestGroupDropsDuplicateSequences(t *testing.T) {
	records := map[int]*models.QRCode{
		1: code("a", 1, caseNo(1), false, models.CodeStatusAvailable),
	}
	entries := []Entry{{SequenceNo: 1}, {SequenceNo: 1}, {SequenceNo: 1}}

	groups, _ := Group(entries, records)
	require.Len(t, groups, 1)
	assert.Len(t, groups[1].Spoiled, 1)
}

func TestGroupWarnsOnUnassignedCase(t *testing.T) {
	records := map[int]*models.QRCode{
		1: code("a", 1, nil, false, models.CodeStatusGenerated),
		2: code("b", 2, caseNo(1), false, models.CodeStatusAvailable),
	}
	entries := []Entry{{SequenceNo: 1}, {SequenceNo: 2}}

	groups, warnings := Group(entries, records)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "sequence 1")
	require.Len(t, groups, 1)
	assert.Len(t, groups[1].Spoiled, 1)
}

func TestSortedCaseNumbers(t *testing.T) {
	groups := map[int]*CaseGroup{
		7: {CaseNumber: 7},
		2: {CaseNumber: 2},
		5: {CaseNumber: 5},
	}
	assert.Equal(t, []int{2, 5, 7}, SortedCaseNumbers(groups))
}

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrtrace-backend/internal/models"
)

func TestBuildPlanPairsInInputOrder(t *testing.T) {
	records := map[int]*models.QRCode{
		1:   code("s1", 1, caseNo(1), false, models.CodeStatusAvailable),
		2:   code("s2", 2, caseNo(1), false, models.CodeStatusAvailable),
		101: code("b1", 101, caseNo(1), true, models.CodeStatusBufferAvailable),
		102: code("b2", 102, caseNo(1), true, models.CodeStatusBufferAvailable),
	}
	group := &CaseGroup{
		CaseNumber: 1,
		Spoiled:    []Entry{{SequenceNo: 2}, {SequenceNo: 1}},
		Buffers:    []Entry{{SequenceNo: 102}, {SequenceNo: 101}},
	}

	plan := BuildPlan(group, records)
	require.Len(t, plan.Pairings, 2)

	// First spoiled in input order gets the first buffer in input order
	assert.Equal(t, 2, plan.Pairings[0].SpoiledSequenceNo)
	require.NotNil(t, plan.Pairings[0].ReplacementSequenceNo)
	assert.Equal(t, 102, *plan.Pairings[0].ReplacementSequenceNo)

	assert.Equal(t, 1, plan.Pairings[1].SpoiledSequenceNo)
	require.NotNil(t, plan.Pairings[1].ReplacementSequenceNo)
	assert.Equal(t, 101, *plan.Pairings[1].ReplacementSequenceNo)

	assert.Equal(t, 0, plan.AutoAllocateCount)
	assert.Equal(t, 0, plan.ExcessBufferCount)
	assert.Equal(t, []string{"b2", "b1"}, plan.ProvidedBufferIDs)
}

func TestBuildPlanAutoAllocatesRemainder(t *testing.T) {
	records := map[int]*models.QRCode{
		1:   code("s1", 1, caseNo(1), false, models.CodeStatusAvailable),
		2:   code("s2", 2, caseNo(1), false, models.CodeStatusAvailable),
		101: code("b1", 101, caseNo(1), true, models.CodeStatusBufferAvailable),
	}
	group := &CaseGroup{
		CaseNumber: 1,
		Spoiled:    []Entry{{SequenceNo: 1}, {SequenceNo: 2}},
		Buffers:    []Entry{{SequenceNo: 101}},
	}

	plan := BuildPlan(group, records)
	require.Len(t, plan.Pairings, 2)
	assert.NotNil(t, plan.Pairings[0].ReplacementCodeID)
	assert.Nil(t, plan.Pairings[1].ReplacementCodeID)
	assert.Equal(t, 1, plan.AutoAllocateCount)
}

func TestBuildPlanReportsExcessBuffers(t *testing.T) {
	records := map[int]*models.QRCode{
		1:   code("s1", 1, caseNo(1), false, models.CodeStatusAvailable),
		101: code("b1", 101, caseNo(1), true, models.CodeStatusBufferAvailable),
		102: code("b2", 102, caseNo(1), true, models.CodeStatusBufferAvailable),
	}
	group := &CaseGroup{
		CaseNumber: 1,
		Spoiled:    []Entry{{SequenceNo: 1}},
		Buffers:    []Entry{{SequenceNo: 101}, {SequenceNo: 102}},
	}

	plan := BuildPlan(group, records)
	assert.Equal(t, 1, plan.ExcessBufferCount)
	// Surplus buffers are reported, never consumed
	assert.Equal(t, []string{"b1"}, plan.ProvidedBufferIDs)
}

func TestBuildPlanVerificationOnly(t *testing.T) {
	records := map[int]*models.QRCode{
		101: code("b1", 101, caseNo(1), true, models.CodeStatusBufferAvailable),
	}
	group := &CaseGroup{
		CaseNumber: 1,
		Buffers:    []Entry{{SequenceNo: 101}},
	}

	plan := BuildPlan(group, records)
	assert.True(t, plan.VerificationOnly)
	assert.Empty(t, plan.Pairings)
	assert.Empty(t, plan.SpoiledCodeIDs)
	assert.Empty(t, plan.ProvidedBufferIDs)
}

func TestBuildPlanFlagsRespoiledCodes(t *testing.T) {
	records := map[int]*models.QRCode{
		1: code("s1", 1, caseNo(1), false, models.CodeStatusSpoiled),
		2: code("s2", 2, caseNo(1), false, models.CodeStatusAvailable),
	}
	group := &CaseGroup{
		CaseNumber: 1,
		Spoiled:    []Entry{{SequenceNo: 1}, {SequenceNo: 2}},
	}

	plan := BuildPlan(group, records)
	assert.Equal(t, []int{1}, plan.Respoiled)
	assert.Len(t, plan.Pairings, 2)
}

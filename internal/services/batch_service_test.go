package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrtrace-backend/internal/models"
)

func TestGenerateCodesLayout(t *testing.T) {
	batch := &models.Batch{
		ID:            "batch-1",
		CaseCount:     2,
		UnitsPerCase:  3,
		BufferPerCase: 2,
	}

	codes := generateCodes(batch)
	require.Len(t, codes, 10)

	// Primaries come first, 1..6, grouped by case
	for i := 0; i < 6; i++ {
		assert.Equal(t, i+1, codes[i].SequenceNumber)
		assert.False(t, codes[i].IsBuffer)
		assert.Equal(t, models.CodeStatusAvailable, codes[i].Status)
	}
	require.NotNil(t, codes[0].CaseNumber)
	assert.Equal(t, 1, *codes[2].CaseNumber)
	assert.Equal(t, 2, *codes[3].CaseNumber)

	// Then the buffer block, buffer_per_case per case
	for i := 6; i < 10; i++ {
		assert.Equal(t, i+1, codes[i].SequenceNumber)
		assert.True(t, codes[i].IsBuffer)
		assert.Equal(t, models.CodeStatusBufferAvailable, codes[i].Status)
	}
	assert.Equal(t, 1, *codes[7].CaseNumber)
	assert.Equal(t, 2, *codes[8].CaseNumber)
}

func TestGenerateCodesNoBuffers(t *testing.T) {
	batch := &models.Batch{
		ID:           "batch-1",
		CaseCount:    1,
		UnitsPerCase: 4,
	}

	codes := generateCodes(batch)
	require.Len(t, codes, 4)
	for _, c := range codes {
		assert.False(t, c.IsBuffer)
	}
}

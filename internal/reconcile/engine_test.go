package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrtrace-backend/internal/models"
)

type fakeJobStore struct {
	active    map[int]*models.ReverseJob
	uses      map[int]*ReplacementUse
	created   []*models.ReverseJob
	spoiled   [][]string
	buffered  [][]string
	createErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		active: make(map[int]*models.ReverseJob),
		uses:   make(map[int]*ReplacementUse),
	}
}

func (s *fakeJobStore) FindActiveJob(ctx context.Context, batchID string, caseNumber int) (*models.ReverseJob, error) {
	return s.active[caseNumber], nil
}

func (s *fakeJobStore) FindReplacementUse(ctx context.Context, batchID string, replacementSeq int) (*ReplacementUse, error) {
	return s.uses[replacementSeq], nil
}

func (s *fakeJobStore) CreateJob(ctx context.Context, job *models.ReverseJob, spoiledCodeIDs, bufferCodeIDs []string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, job)
	s.spoiled = append(s.spoiled, spoiledCodeIDs)
	s.buffered = append(s.buffered, bufferCodeIDs)
	return nil
}

// testStore builds a one-batch registry: cases 1..3, 10 units each starting at
// (case-1)*10+1, buffers at 100+case*10.
func testStore() *recordingCodeStore {
	store := &recordingCodeStore{
		batch:   testBatch(),
		codes:   make(map[int]*models.QRCode),
		buffers: map[int]int{1: 5, 2: 5, 3: 5},
	}
	id := 0
	for c := 1; c <= 3; c++ {
		for u := 1; u <= 10; u++ {
			seq := (c-1)*10 + u
			id++
			store.codes[seq] = code(seqID("unit", id), seq, caseNo(c), false, models.CodeStatusAvailable)
		}
		for b := 1; b <= 3; b++ {
			seq := 100 + c*10 + b
			id++
			store.codes[seq] = code(seqID("buf", id), seq, caseNo(c), true, models.CodeStatusBufferAvailable)
		}
	}
	return store
}

func seqID(prefix string, n int) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}

func TestAnalyzePairsAndAutoAllocates(t *testing.T) {
	store := testStore()
	engine := NewEngine(store, newFakeJobStore())

	// Two spoiled units in case 1 plus one of its buffers
	analysis, err := engine.Analyze(context.Background(), "order-1", "batch-1", "1 2 111")
	require.NoError(t, err)

	assert.Equal(t, 2, analysis.SpoiledCount)
	assert.Equal(t, 1, analysis.BufferProvidedCount)
	assert.Equal(t, 1, analysis.AutoAllocateCount)
	assert.Equal(t, 0, analysis.ExcessBufferCount)
	require.Len(t, analysis.Cases, 1)
	assert.Equal(t, 1, analysis.Cases[0].CaseNumber)
	assert.False(t, analysis.Cases[0].VerificationOnly)
	assert.Empty(t, analysis.InsufficientBuffers)
}

func TestAnalyzeVerificationOnlyCase(t *testing.T) {
	store := testStore()
	engine := NewEngine(store, newFakeJobStore())

	// Buffers only, no spoiled units
	analysis, err := engine.Analyze(context.Background(), "order-1", "batch-1", "111 112")
	require.NoError(t, err)

	assert.Equal(t, 0, analysis.SpoiledCount)
	assert.Equal(t, 2, analysis.IgnoredBuffers)
	require.Len(t, analysis.Cases, 1)
	assert.True(t, analysis.Cases[0].VerificationOnly)
}

func TestAnalyzeReportsInsufficientBuffers(t *testing.T) {
	store := testStore()
	store.buffers[1] = 1
	engine := NewEngine(store, newFakeJobStore())

	analysis, err := engine.Analyze(context.Background(), "order-1", "batch-1", "1 2 3")
	require.NoError(t, err)

	require.Len(t, analysis.InsufficientBuffers, 1)
	assert.Equal(t, 1, analysis.InsufficientBuffers[0].CaseNumber)
	assert.Equal(t, 3, analysis.InsufficientBuffers[0].Needed)
	assert.Equal(t, 1, analysis.InsufficientBuffers[0].Available)
}

func TestAnalyzeUnknownSequenceAborts(t *testing.T) {
	engine := NewEngine(testStore(), newFakeJobStore())

	_, err := engine.Analyze(context.Background(), "order-1", "batch-1", "1 99999")
	require.Error(t, err)

	engineErr, ok := AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCodesNotFound, engineErr.Code)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	engine := NewEngine(testStore(), newFakeJobStore())

	_, err := engine.Analyze(context.Background(), "order-1", "batch-1", "  ")
	require.Error(t, err)

	engineErr, ok := AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoValidCodes, engineErr.Code)
}

func TestAnalyzeRejectsUnparseableInput(t *testing.T) {
	engine := NewEngine(testStore(), newFakeJobStore())

	_, err := engine.Analyze(context.Background(), "order-1", "batch-1", "1 garbage")
	require.Error(t, err)

	engineErr, ok := AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidInput, engineErr.Code)
	assert.Contains(t, engineErr.Message, "garbage")
}

func TestAnalyzeAllWrongOrder(t *testing.T) {
	engine := NewEngine(testStore(), newFakeJobStore())

	_, err := engine.Analyze(context.Background(), "order-1", "batch-1",
		"https://x/q/ORD-999/1 https://x/q/ORD-999/2")
	require.Error(t, err)

	engineErr, ok := AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoValidCodes, engineErr.Code)
}

func TestAnalyzeBatchOrderMismatch(t *testing.T) {
	engine := NewEngine(testStore(), newFakeJobStore())

	_, err := engine.Analyze(context.Background(), "other-order", "batch-1", "1")
	require.Error(t, err)

	engineErr, ok := AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidInput, engineErr.Code)
}

func TestExecuteCreatesOneJobPerCase(t *testing.T) {
	store := testStore()
	jobs := newFakeJobStore()
	engine := NewEngine(store, jobs)

	// Spoiled units across cases 2 and 1, out of order in the input
	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "11 1 12", 42)
	require.NoError(t, err)

	assert.True(t, result.IsSplit)
	assert.Equal(t, 2, result.TotalCases)
	require.Len(t, result.Jobs, 2)

	// Ascending case order regardless of input order
	assert.Equal(t, 1, result.Jobs[0].CaseNumber)
	assert.Equal(t, 2, result.Jobs[1].CaseNumber)
	assert.Equal(t, CaseCreated, result.Jobs[0].Status)
	assert.Equal(t, CaseCreated, result.Jobs[1].Status)

	require.Len(t, jobs.created, 2)
	assert.Equal(t, 42, jobs.created[0].CreatedBy)
	assert.Equal(t, models.JobStatusQueued, jobs.created[0].Status)
	assert.Len(t, jobs.created[0].Items, 1)
	assert.Len(t, jobs.created[1].Items, 2)

	assert.Len(t, result.CreatedJobIDs(), 2)
}

func TestExecuteSkipsCaseWithActiveJob(t *testing.T) {
	store := testStore()
	jobs := newFakeJobStore()
	done := time.Now()
	jobs.active[1] = &models.ReverseJob{
		ID:          "job-prior",
		Status:      models.JobStatusCompleted,
		CaseNumber:  1,
		CompletedAt: &done,
	}
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "1 11", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 2)

	assert.Equal(t, CaseSkipped, result.Jobs[0].Status)
	assert.Equal(t, "job-prior", result.Jobs[0].JobID)
	assert.NotNil(t, result.Jobs[0].CompletedAt)

	// The sibling case is unaffected
	assert.Equal(t, CaseCreated, result.Jobs[1].Status)
	require.Len(t, jobs.created, 1)
	assert.Equal(t, 2, jobs.created[0].CaseNumber)
}

func TestExecuteFailsCaseOnUsedBuffer(t *testing.T) {
	store := testStore()
	store.codes[111].Status = models.CodeStatusBufferUsed
	jobs := newFakeJobStore()
	jobs.uses[111] = &ReplacementUse{JobID: "job-old", SpoiledSequenceNo: 4}
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "1 111 11", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 2)

	assert.Equal(t, CaseFailed, result.Jobs[0].Status)
	assert.Equal(t, CodeBufferAlreadyUsed, result.Jobs[0].ErrorCode)
	assert.Contains(t, result.Jobs[0].Message, "job-old")
	assert.Contains(t, result.Jobs[0].Message, "spoiled 4")

	// Other cases still proceed
	assert.Equal(t, CaseCreated, result.Jobs[1].Status)
	require.Len(t, jobs.created, 1)
}

func TestExecuteConcurrentDuplicateSkips(t *testing.T) {
	store := testStore()
	jobs := newFakeJobStore()
	jobs.createErr = ErrDuplicateJob
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "1", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, CaseSkipped, result.Jobs[0].Status)
	assert.Empty(t, result.CreatedJobIDs())
}

func TestExecuteVerificationOnlyJobHasNoItems(t *testing.T) {
	store := testStore()
	jobs := newFakeJobStore()
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "111", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, CaseCreated, result.Jobs[0].Status)

	require.Len(t, jobs.created, 1)
	assert.Empty(t, jobs.created[0].Items)
	assert.Empty(t, jobs.spoiled[0])
	assert.Empty(t, jobs.buffered[0])
}

func TestExecuteProceedsOnBufferShortfall(t *testing.T) {
	store := testStore()
	store.buffers[1] = 0
	jobs := newFakeJobStore()
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "1 2", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)

	// The job is still created; the shortfall is surfaced alongside
	assert.Equal(t, CaseCreated, result.Jobs[0].Status)
	require.Len(t, result.InsufficientBuffers, 1)
	assert.Equal(t, 2, result.InsufficientBuffers[0].Needed)
	assert.Equal(t, 0, result.InsufficientBuffers[0].Available)
}

func TestExecuteWarnsOnRespoiledCodes(t *testing.T) {
	store := testStore()
	store.codes[1].Status = models.CodeStatusSpoiled
	jobs := newFakeJobStore()
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "1", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, CaseCreated, result.Jobs[0].Status)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "already marked spoiled")
}

func TestExecutePassesCodeIDsToStore(t *testing.T) {
	store := testStore()
	jobs := newFakeJobStore()
	engine := NewEngine(store, jobs)

	result, err := engine.Execute(context.Background(), "order-1", "batch-1", "1 111", 42)
	require.NoError(t, err)
	require.Len(t, result.Jobs, 1)
	require.Len(t, jobs.created, 1)

	assert.Equal(t, []string{store.codes[1].ID}, jobs.spoiled[0])
	assert.Equal(t, []string{store.codes[111].ID}, jobs.buffered[0])

	item := jobs.created[0].Items[0]
	assert.Equal(t, 1, item.SpoiledSequenceNo)
	require.NotNil(t, item.ReplacementSequenceNo)
	assert.Equal(t, 111, *item.ReplacementSequenceNo)
}

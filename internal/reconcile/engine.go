package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"qrtrace-backend/internal/models"
)

// Engine turns pasted spoiled/buffer QR input into per-case replacement jobs.
// It reads the registry through CodeStore and persists through JobStore, so
// tests run it against in-memory fakes.
type Engine struct {
	Codes CodeStore
	Jobs  JobStore
}

func NewEngine(codes CodeStore, jobs JobStore) *Engine {
	return &Engine{Codes: codes, Jobs: jobs}
}

// BufferShortfall reports that a case needs more auto-allocated buffers than
// the registry currently has available. The job is still created; the worker
// marks the remainder "spoiled only, unreplaced".
type BufferShortfall struct {
	CaseNumber int `json:"case_number"`
	Needed     int `json:"needed"`
	Available  int `json:"available"`
}

// CasePreview is the per-case slice of an analysis (no writes performed).
type CasePreview struct {
	CaseNumber        int    `json:"case_number"`
	SpoiledCount      int    `json:"spoiled_count"`
	BufferProvided    int    `json:"buffer_provided"`
	AutoAllocateCount int    `json:"auto_allocate_count"`
	ExcessBuffers     int    `json:"excess_buffers"`
	VerificationOnly  bool   `json:"verification_only"`
	AlreadyCompleted  bool   `json:"already_completed"`
	BufferAlreadyUsed []int  `json:"buffer_already_used,omitempty"`
	PriorJobStatus    string `json:"prior_job_status,omitempty"`
}

// Analysis is the read-only preview payload.
type Analysis struct {
	SpoiledCount        int               `json:"spoiled_count"`
	BufferProvidedCount int               `json:"buffer_provided_count"`
	AutoAllocateCount   int               `json:"auto_allocate_count"`
	ExcessBufferCount   int               `json:"excess_buffer_count"`
	IgnoredBuffers      int               `json:"ignored_buffers"`
	WrongOrderCodes     []string          `json:"wrong_order_codes"`
	InsufficientBuffers []BufferShortfall `json:"insufficient_buffers"`
	Cases               []CasePreview     `json:"cases"`
	Warnings            []string          `json:"warnings,omitempty"`
}

// Case materialization outcomes.
const (
	CaseCreated = "created"
	CaseSkipped = "skipped"
	CaseFailed  = "failed"
)

// CaseResult is one case's outcome in a create request.
type CaseResult struct {
	JobID          string     `json:"job_id,omitempty"`
	CaseNumber     int        `json:"case_number"`
	SpoiledCount   int        `json:"spoiled_count"`
	BufferProvided int        `json:"buffer_provided"`
	Status         string     `json:"status"`
	ErrorCode      string     `json:"error,omitempty"`
	Message        string     `json:"message,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Result is the multi-case summary for a create request.
type Result struct {
	Jobs                []CaseResult      `json:"jobs"`
	TotalCases          int               `json:"total_cases"`
	IsSplit             bool              `json:"is_split"`
	WrongOrderCodes     []string          `json:"wrong_order_codes,omitempty"`
	InsufficientBuffers []BufferShortfall `json:"insufficient_buffers,omitempty"`
	Warnings            []string          `json:"warnings,omitempty"`
}

// CreatedJobIDs returns the ids of jobs materialized by this request, in case
// order, for the downstream worker notification.
func (r *Result) CreatedJobIDs() []string {
	var ids []string
	for _, j := range r.Jobs {
		if j.Status == CaseCreated {
			ids = append(ids, j.JobID)
		}
	}
	return ids
}

type prepared struct {
	batch    *models.Batch
	class    *Classification
	groups   map[int]*CaseGroup
	caseNums []int
	warnings []string
}

// prepare runs the read-only half of the pipeline shared by Analyze and
// Execute: parse, batch resolution, classification and grouping. Parse and
// classification failures abort the whole request; nothing is committed yet.
func (e *Engine) prepare(ctx context.Context, orderID, batchID, input string) (*prepared, error) {
	entries, parseErrors, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if len(parseErrors) > 0 {
		return nil, newError(CodeInvalidInput, "unparseable input: %s", strings.Join(parseErrors, "; "))
	}
	if len(entries) == 0 {
		return nil, newError(CodeNoValidCodes, "no valid QR codes found in input")
	}

	batch, err := e.Codes.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch lookup failed: %w", err)
	}
	if orderID != "" && batch.OrderID != orderID {
		return nil, newError(CodeInvalidInput, "batch %s does not belong to order %s", batchID, orderID)
	}

	class, err := Classify(ctx, e.Codes, batch, entries)
	if err != nil {
		return nil, err
	}
	if len(class.Entries) == 0 {
		return nil, newError(CodeNoValidCodes,
			"all codes belong to a different order (%d wrong-order codes)", len(class.WrongOrder))
	}

	groups, warnings := Group(class.Entries, class.Records)
	if len(groups) == 0 {
		return nil, newError(CodeNoValidCodes, "no codes with a case assignment in input")
	}

	return &prepared{
		batch:    batch,
		class:    class,
		groups:   groups,
		caseNums: SortedCaseNumbers(groups),
		warnings: warnings,
	}, nil
}

// usedBuffers returns the buffer sequences in a group whose registry status
// is already buffer_used. Reusing a spent buffer would corrupt the audit
// trail, so these fail the case outright.
func usedBuffers(group *CaseGroup, records map[int]*models.QRCode) []int {
	var used []int
	for _, b := range group.Buffers {
		if records[b.SequenceNo].Status == models.CodeStatusBufferUsed {
			used = append(used, b.SequenceNo)
		}
	}
	return used
}

// Analyze runs the pipeline without writing anything and reports what a
// create request would do.
func (e *Engine) Analyze(ctx context.Context, orderID, batchID, input string) (*Analysis, error) {
	prep, err := e.prepare(ctx, orderID, batchID, input)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		WrongOrderCodes: prep.class.WrongOrder,
		Warnings:        prep.warnings,
	}
	if analysis.WrongOrderCodes == nil {
		analysis.WrongOrderCodes = []string{}
	}

	for _, caseNo := range prep.caseNums {
		group := prep.groups[caseNo]
		plan := BuildPlan(group, prep.class.Records)

		preview := CasePreview{
			CaseNumber:        caseNo,
			SpoiledCount:      len(group.Spoiled),
			BufferProvided:    len(plan.ProvidedBufferIDs),
			AutoAllocateCount: plan.AutoAllocateCount,
			ExcessBuffers:     plan.ExcessBufferCount,
			VerificationOnly:  plan.VerificationOnly,
			BufferAlreadyUsed: usedBuffers(group, prep.class.Records),
		}

		if existing, err := e.Jobs.FindActiveJob(ctx, prep.batch.ID, caseNo); err != nil {
			return nil, fmt.Errorf("prior job lookup failed for case %d: %w", caseNo, err)
		} else if existing != nil {
			preview.AlreadyCompleted = existing.Status == models.JobStatusCompleted
			preview.PriorJobStatus = existing.Status
		}

		analysis.SpoiledCount += preview.SpoiledCount
		analysis.BufferProvidedCount += preview.BufferProvided
		analysis.AutoAllocateCount += preview.AutoAllocateCount
		analysis.ExcessBufferCount += preview.ExcessBuffers
		if plan.VerificationOnly {
			analysis.IgnoredBuffers += len(group.Buffers)
		}

		if plan.AutoAllocateCount > 0 {
			available, err := e.Codes.CountAvailableBuffers(ctx, prep.batch.ID, caseNo)
			if err != nil {
				return nil, fmt.Errorf("buffer availability check failed for case %d: %w", caseNo, err)
			}
			if available < plan.AutoAllocateCount {
				analysis.InsufficientBuffers = append(analysis.InsufficientBuffers, BufferShortfall{
					CaseNumber: caseNo,
					Needed:     plan.AutoAllocateCount,
					Available:  available,
				})
			}
		}

		analysis.Cases = append(analysis.Cases, preview)
	}

	if analysis.InsufficientBuffers == nil {
		analysis.InsufficientBuffers = []BufferShortfall{}
	}
	return analysis, nil
}

// Execute materializes one replacement job per case. Cases are processed in
// ascending case number and independently: one case failing never rolls back
// or blocks its siblings. A case whose active job already exists is reported
// as skipped, never duplicated.
func (e *Engine) Execute(ctx context.Context, orderID, batchID, input string, userID int) (*Result, error) {
	prep, err := e.prepare(ctx, orderID, batchID, input)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TotalCases:      len(prep.caseNums),
		IsSplit:         len(prep.caseNums) > 1,
		WrongOrderCodes: prep.class.WrongOrder,
		Warnings:        prep.warnings,
	}

	for _, caseNo := range prep.caseNums {
		group := prep.groups[caseNo]
		result.Jobs = append(result.Jobs, e.executeCase(ctx, prep, group, userID, result))
	}

	return result, nil
}

func (e *Engine) executeCase(ctx context.Context, prep *prepared, group *CaseGroup, userID int, result *Result) CaseResult {
	caseNo := group.CaseNumber
	records := prep.class.Records

	res := CaseResult{
		CaseNumber:   caseNo,
		SpoiledCount: len(group.Spoiled),
	}

	existing, err := e.Jobs.FindActiveJob(ctx, prep.batch.ID, caseNo)
	if err != nil {
		res.Status = CaseFailed
		res.Message = fmt.Sprintf("prior job lookup failed: %v", err)
		return res
	}
	if existing != nil {
		res.Status = CaseSkipped
		res.JobID = existing.ID
		res.CompletedAt = existing.CompletedAt
		if existing.Status == models.JobStatusCompleted {
			res.Message = "case already completed"
		} else {
			res.Message = "replacement job already " + existing.Status
		}
		log.Printf("[Reconcile] case %d: skipped, job %s already %s", caseNo, existing.ID, existing.Status)
		return res
	}

	if used := usedBuffers(group, records); len(used) > 0 {
		details := make([]string, 0, len(used))
		for _, seq := range used {
			use, lookupErr := e.Jobs.FindReplacementUse(ctx, prep.batch.ID, seq)
			if lookupErr == nil && use != nil {
				details = append(details, fmt.Sprintf("buffer %d already replaced spoiled %d (job %s)",
					seq, use.SpoiledSequenceNo, use.JobID))
			} else {
				details = append(details, fmt.Sprintf("buffer %d already used", seq))
			}
		}
		res.Status = CaseFailed
		res.ErrorCode = CodeBufferAlreadyUsed
		res.Message = strings.Join(details, "; ")
		return res
	}

	plan := BuildPlan(group, records)
	res.BufferProvided = len(plan.ProvidedBufferIDs)

	if len(plan.Respoiled) > 0 {
		// Allowed (recovery from an earlier failed or deleted job) but worth
		// surfacing: the codes were spoiled by a previous submission.
		warning := fmt.Sprintf("case %d: sequences %s were already marked spoiled; reprocessing",
			caseNo, joinInts(plan.Respoiled))
		result.Warnings = append(result.Warnings, warning)
		log.Printf("[Reconcile] %s", warning)
	}

	if plan.AutoAllocateCount > 0 {
		available, availErr := e.Codes.CountAvailableBuffers(ctx, prep.batch.ID, caseNo)
		if availErr != nil {
			res.Status = CaseFailed
			res.Message = fmt.Sprintf("buffer availability check failed: %v", availErr)
			return res
		}
		if available < plan.AutoAllocateCount {
			result.InsufficientBuffers = append(result.InsufficientBuffers, BufferShortfall{
				CaseNumber: caseNo,
				Needed:     plan.AutoAllocateCount,
				Available:  available,
			})
			log.Printf("[Reconcile] case %d: insufficient buffers (need %d, have %d), proceeding with shortfall",
				caseNo, plan.AutoAllocateCount, available)
		}
	}

	job := &models.ReverseJob{
		ID:         uuid.NewString(),
		BatchID:    prep.batch.ID,
		OrderID:    prep.batch.OrderID,
		CaseNumber: caseNo,
		Status:     models.JobStatusQueued,
		CreatedBy:  userID,
	}
	for _, p := range plan.Pairings {
		job.Items = append(job.Items, models.ReverseJobItem{
			JobID:                 job.ID,
			SpoiledSequenceNo:     p.SpoiledSequenceNo,
			ReplacementCodeID:     p.ReplacementCodeID,
			ReplacementSequenceNo: p.ReplacementSequenceNo,
			Status:                "pending",
		})
	}

	if err := e.Jobs.CreateJob(ctx, job, plan.SpoiledCodeIDs, plan.ProvidedBufferIDs); err != nil {
		if errors.Is(err, ErrDuplicateJob) {
			// A concurrent request won the insert race; same outcome as the
			// idempotency check above.
			res.Status = CaseSkipped
			res.Message = "replacement job already in progress"
			log.Printf("[Reconcile] case %d: concurrent create detected, skipping", caseNo)
			return res
		}
		res.Status = CaseFailed
		res.Message = fmt.Sprintf("job materialization failed: %v", err)
		log.Printf("[Reconcile] case %d: materialization failed: %v", caseNo, err)
		return res
	}

	res.Status = CaseCreated
	res.JobID = job.ID
	log.Printf("[Reconcile] case %d: job %s queued (%d spoiled, %d buffers, %d auto-allocate)",
		caseNo, job.ID, res.SpoiledCount, res.BufferProvided, plan.AutoAllocateCount)
	return res
}

package reconcile

import (
	"qrtrace-backend/internal/models"
)

// Pairing links one spoiled unit to its replacement. A nil replacement means
// the downstream worker auto-allocates an available buffer for the case.
type Pairing struct {
	SpoiledSequenceNo     int
	SpoiledCodeID         string
	ReplacementCodeID     *string
	ReplacementSequenceNo *int
}

// CasePlan is the deterministic reconciliation plan for one case.
type CasePlan struct {
	CaseNumber        int
	Pairings          []Pairing
	SpoiledCodeIDs    []string
	ProvidedBufferIDs []string
	AutoAllocateCount int
	ExcessBufferCount int
	VerificationOnly  bool
	Respoiled         []int // sequences that were already marked spoiled
}

// BuildPlan pairs spoiled entries with user-supplied buffers in input order:
// the first min(S,B) spoiled entries get the first min(S,B) buffers
// one-to-one, any remaining spoiled entries fall back to auto-allocation, and
// surplus buffers are reported, never silently consumed. With no spoiled
// entries at all the case is verification-only and the plan carries no items.
func BuildPlan(group *CaseGroup, records map[int]*models.QRCode) *CasePlan {
	plan := &CasePlan{CaseNumber: group.CaseNumber}

	if len(group.Spoiled) == 0 {
		plan.VerificationOnly = true
		return plan
	}

	for i, spoiled := range group.Spoiled {
		rec := records[spoiled.SequenceNo]
		if rec.Status == models.CodeStatusSpoiled {
			plan.Respoiled = append(plan.Respoiled, spoiled.SequenceNo)
		}
		plan.SpoiledCodeIDs = append(plan.SpoiledCodeIDs, rec.ID)

		p := Pairing{
			SpoiledSequenceNo: spoiled.SequenceNo,
			SpoiledCodeID:     rec.ID,
		}
		if i < len(group.Buffers) {
			buf := records[group.Buffers[i].SequenceNo]
			seq := buf.SequenceNumber
			id := buf.ID
			p.ReplacementCodeID = &id
			p.ReplacementSequenceNo = &seq
			plan.ProvidedBufferIDs = append(plan.ProvidedBufferIDs, buf.ID)
		} else {
			plan.AutoAllocateCount++
		}
		plan.Pairings = append(plan.Pairings, p)
	}

	if extra := len(group.Buffers) - len(group.Spoiled); extra > 0 {
		plan.ExcessBufferCount = extra
	}

	return plan
}

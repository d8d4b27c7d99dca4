package reconcile

import (
	"fmt"
	"sort"

	"qrtrace-backend/internal/models"
)

// CaseGroup collects the entries that resolved to one physical case.
type CaseGroup struct {
	CaseNumber int
	Spoiled    []Entry
	Buffers    []Entry
}

// Group buckets classified entries by their authoritative case number. The
// case assignment comes strictly from the registry record; deriving it from
// sequence arithmetic is wrong because buffer units are assigned out-of-band.
// Duplicate sequence numbers keep only their first occurrence. A case with
// buffers but no spoiled entries is retained as a verification-only case.
func Group(entries []Entry, records map[int]*models.QRCode) (map[int]*CaseGroup, []string) {
	groups := make(map[int]*CaseGroup)
	var warnings []string

	seen := make(map[int]bool)
	for _, e := range entries {
		if seen[e.SequenceNo] {
			continue
		}
		seen[e.SequenceNo] = true

		rec := records[e.SequenceNo]
		if rec == nil {
			// Classify aborts on missing records, so this only happens when
			// the caller skipped classification; drop defensively.
			continue
		}
		if rec.CaseNumber == nil {
			warnings = append(warnings,
				fmt.Sprintf("sequence %d has no case assignment yet; ignored", e.SequenceNo))
			continue
		}

		g := groups[*rec.CaseNumber]
		if g == nil {
			g = &CaseGroup{CaseNumber: *rec.CaseNumber}
			groups[*rec.CaseNumber] = g
		}
		if rec.IsBuffer {
			g.Buffers = append(g.Buffers, e)
		} else {
			g.Spoiled = append(g.Spoiled, e)
		}
	}

	return groups, warnings
}

// SortedCaseNumbers returns the group keys in ascending order so multi-case
// summaries are deterministic.
func SortedCaseNumbers(groups map[int]*CaseGroup) []int {
	nums := make([]int, 0, len(groups))
	for n := range groups {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

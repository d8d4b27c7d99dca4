package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"qrtrace-backend/internal/models"
)

// LookupChunkSize bounds the number of sequence numbers per registry query.
const LookupChunkSize = 1000

// Classification is the classifier's output: the authoritative code record
// per sequence, the surviving entries in input order, and the raw tokens that
// embedded a different order number.
type Classification struct {
	Records    map[int]*models.QRCode
	Entries    []Entry
	WrongOrder []string
}

// Classify resolves every entry against the code registry. Entries whose
// embedded order number disagrees with the batch's order are set aside as
// wrong-order warnings (the user likely mixed pasted text from two orders).
// Any remaining sequence missing from the registry aborts the request: a
// missing code almost always means the wrong batch was selected.
func Classify(ctx context.Context, store CodeStore, batch *models.Batch, entries []Entry) (*Classification, error) {
	c := &Classification{Records: make(map[int]*models.QRCode)}

	seen := make(map[int]bool)
	var seqs []int
	for _, e := range entries {
		if e.OrderNo != "" && !strings.EqualFold(e.OrderNo, batch.OrderNo) {
			c.WrongOrder = append(c.WrongOrder, e.Raw)
			continue
		}
		c.Entries = append(c.Entries, e)
		if !seen[e.SequenceNo] {
			seen[e.SequenceNo] = true
			seqs = append(seqs, e.SequenceNo)
		}
	}

	for start := 0; start < len(seqs); start += LookupChunkSize {
		end := start + LookupChunkSize
		if end > len(seqs) {
			end = len(seqs)
		}
		records, err := store.LookupCodes(ctx, batch.ID, seqs[start:end])
		if err != nil {
			return nil, fmt.Errorf("code registry lookup failed: %w", err)
		}
		for seq, rec := range records {
			c.Records[seq] = rec
		}
	}

	var missing []int
	for _, seq := range seqs {
		if _, ok := c.Records[seq]; !ok {
			missing = append(missing, seq)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return nil, newError(CodeCodesNotFound,
			"sequence numbers not found in batch: %s (is this the right batch?)", joinInts(missing))
	}

	return c, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}

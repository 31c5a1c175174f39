package store

import (
	"fmt"
	"slices"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
)

// marshalTree converts a match tree to canonical JSON TEXT for storage.
func marshalTree(tree ir.Object) (string, error) {
	data, err := ir.MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("marshal tree: %w", err)
	}
	return string(data), nil
}

// MatchRecords converts every match of applies into a record of runID.
// Seq numbers follow the order the matches finished, starting at 1.
func MatchRecords(runID string, applies []*rule.RuleApply) ([]ir.MatchRecord, error) {
	var out []ir.MatchRecord
	for _, ra := range applies {
		for _, rm := range ra.Matches {
			tree, err := marshalTree(rm.Object())
			if err != nil {
				return nil, fmt.Errorf("match %s: %w", rm.ID(), err)
			}
			hash, err := rm.Fingerprint()
			if err != nil {
				return nil, fmt.Errorf("match %s: %w", rm.ID(), err)
			}
			rec := ir.MatchRecord{
				ID:       rm.ID(),
				RunID:    runID,
				Rule:     ra.Rule.ID,
				Seq:      int64(len(out) + 1),
				Matched:  rm.Matched(),
				Tree:     tree,
				TreeHash: hash,
			}
			if cover, ok := rm.Span(); ok {
				rec.Cover = &cover
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// SpanChanges compares the spans of a document before and after a run by
// ID. Both results are in document order.
func SpanChanges(before, after []ir.Span) (created, removed []ir.Span) {
	had := make(map[int64]bool, len(before))
	for _, s := range before {
		had[s.ID] = true
	}
	has := make(map[int64]bool, len(after))
	for _, s := range after {
		has[s.ID] = true
		if !had[s.ID] {
			created = append(created, s)
		}
	}
	for _, s := range before {
		if !has[s.ID] {
			removed = append(removed, s)
		}
	}
	slices.SortFunc(created, ir.CompareSpans)
	slices.SortFunc(removed, ir.CompareSpans)
	return created, removed
}

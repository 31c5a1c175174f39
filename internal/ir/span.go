package ir

import (
	"cmp"
	"fmt"
)

// AnnotationType is the root of every type hierarchy. A rule element of this
// type matches any span.
const AnnotationType = "Annotation"

// Span is a typed half-open interval [Begin, End) over document text.
// Spans are immutable once created; IDs are assigned by the stream in
// creation order and are unique within a document.
type Span struct {
	ID    int64  `json:"id" yaml:"id"`
	Type  string `json:"type" yaml:"type"`
	Begin int    `json:"begin" yaml:"begin"`
	End   int    `json:"end" yaml:"end"`
}

// Len returns End - Begin.
func (s Span) Len() int { return s.End - s.Begin }

// Contains reports whether s covers o (non-strict).
func (s Span) Contains(o Span) bool {
	return s.Begin <= o.Begin && s.End >= o.End
}

// SameRange reports whether s and o cover the same offsets.
func (s Span) SameRange(o Span) bool {
	return s.Begin == o.Begin && s.End == o.End
}

// Cover returns an AnnotationType span covering [first.Begin, last.End).
// The result has ID 0: it is synthesized, never stored.
func Cover(first, last Span) Span {
	return Span{Type: AnnotationType, Begin: min(first.Begin, last.Begin), End: max(first.End, last.End)}
}

func (s Span) String() string {
	return fmt.Sprintf("%s[%d,%d)", s.Type, s.Begin, s.End)
}

// Object returns the canonical object form of s.
func (s Span) Object() Object {
	return Object{
		"id":    Int(s.ID),
		"type":  TypeRef(s.Type),
		"begin": Int(int64(s.Begin)),
		"end":   Int(int64(s.End)),
	}
}

// CompareSpans orders spans by begin ascending, end descending (longer
// first), then by ID. This is the document order used for anchors.
func CompareSpans(a, b Span) int {
	if c := cmp.Compare(a.Begin, b.Begin); c != 0 {
		return c
	}
	if c := cmp.Compare(b.End, a.End); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

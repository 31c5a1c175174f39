package stream

import (
	"slices"

	"github.com/roach88/spanrule/internal/ir"
)

// DefaultFilteredTypes hide whitespace from matching.
var DefaultFilteredTypes = []string{TypeSPACE, TypeBREAK}

// Stream is a bidirectional cursor over the visible basic units of a
// Document, restricted to a window.
type Stream struct {
	doc            *Document
	begin, end     int
	filtered       []string
	simpleGreedy   bool
	cheapestAnchor bool
	pos            int
}

// Option configures a Stream.
type Option func(*Stream)

// WithFilteredTypes replaces the filtered (invisible) types.
func WithFilteredTypes(types ...string) Option {
	return func(s *Stream) {
		s.filtered = slices.Clone(types)
	}
}

// WithSimpleGreedy selects the iterative repetition loop for composed
// elements instead of one continuation per repetition.
func WithSimpleGreedy(on bool) Option {
	return func(s *Stream) {
		s.simpleGreedy = on
	}
}

// WithCheapestAnchor makes rules without an explicit start anchor seed
// matching from the child with the fewest candidates.
func WithCheapestAnchor(on bool) Option {
	return func(s *Stream) {
		s.cheapestAnchor = on
	}
}

// New creates a stream over the whole document.
func New(doc *Document, opts ...Option) *Stream {
	s := &Stream{
		doc:      doc,
		begin:    0,
		end:      len(doc.text),
		filtered: slices.Clone(DefaultFilteredTypes),
		pos:      -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the underlying document.
func (s *Stream) Document() *Document { return s.doc }

// Types returns the document's type system.
func (s *Stream) Types() *ir.TypeSystem { return s.doc.types }

// SimpleGreedyForComposed reports whether the iterative repetition loop is
// enabled.
func (s *Stream) SimpleGreedyForComposed() bool { return s.simpleGreedy }

// CheapestAnchor reports whether anchoring picks the cheapest child.
func (s *Stream) CheapestAnchor() bool { return s.cheapestAnchor }

// FilteredTypes returns the invisible types.
func (s *Stream) FilteredTypes() []string { return slices.Clone(s.filtered) }

// Window returns a stream over the intersection of s and span. The new
// stream shares the document and starts with an invalid cursor.
func (s *Stream) Window(span ir.Span) *Stream {
	w := *s
	w.filtered = slices.Clone(s.filtered)
	w.begin = max(s.begin, span.Begin)
	w.end = min(s.end, span.End)
	w.pos = -1
	return &w
}

// WindowSpan returns the window as an AnnotationType span.
func (s *Stream) WindowSpan() ir.Span {
	return ir.Span{Type: ir.AnnotationType, Begin: s.begin, End: s.end}
}

// CoveredText returns the text under span.
func (s *Stream) CoveredText(span ir.Span) string { return s.doc.CoveredText(span) }

// AddSpan creates and indexes a span. See Document.AddSpan.
func (s *Stream) AddSpan(typ string, begin, end int) (ir.Span, error) {
	return s.doc.AddSpan(typ, begin, end)
}

// RemoveSpan deletes a span. See Document.RemoveSpan.
func (s *Stream) RemoveSpan(span ir.Span) error {
	return s.doc.RemoveSpan(span)
}

func (s *Stream) inWindow(i int) bool {
	if i < 0 || i >= len(s.doc.units) {
		return false
	}
	u := s.doc.units[i]
	return u.begin >= s.begin && u.end <= s.end
}

func (s *Stream) visible(i int) bool {
	if !s.inWindow(i) {
		return false
	}
	u := s.doc.units[i]
	for _, t := range s.filtered {
		if u.partOf[t] > 0 {
			return false
		}
	}
	return true
}

// IsVisible reports whether the first unit of span is visible.
func (s *Stream) IsVisible(span ir.Span) bool {
	return s.visible(s.doc.unitIndex(span.Begin))
}

// MoveTo positions the cursor at the unit where span begins, or at the next
// visible unit if that one is hidden.
func (s *Stream) MoveTo(span ir.Span) {
	s.pos = s.doc.unitIndex(span.Begin)
	if s.pos >= 0 && !s.visible(s.pos) {
		s.MoveToNext()
	}
}

// MoveToFirst positions the cursor at the first visible unit of the window.
func (s *Stream) MoveToFirst() {
	s.pos = s.doc.unitIndex(s.begin)
	if s.pos >= 0 && !s.visible(s.pos) {
		s.MoveToNext()
	}
}

// MoveToLast positions the cursor at the last visible unit of the window.
func (s *Stream) MoveToLast() {
	s.pos = s.doc.unitIndex(s.end - 1)
	if s.pos >= 0 && !s.visible(s.pos) {
		s.MoveToPrevious()
	}
}

// MoveToNext steps to the next visible unit. The cursor becomes invalid
// past the window end.
func (s *Stream) MoveToNext() {
	for s.pos++; s.inWindow(s.pos); s.pos++ {
		if s.visible(s.pos) {
			return
		}
	}
	s.pos = -1
}

// MoveToPrevious steps to the previous visible unit. The cursor becomes
// invalid before the window start.
func (s *Stream) MoveToPrevious() {
	for s.pos--; s.inWindow(s.pos); s.pos-- {
		if s.visible(s.pos) {
			return
		}
	}
	s.pos = -1
}

// IsValid reports whether the cursor is on a unit of the window.
func (s *Stream) IsValid() bool { return s.inWindow(s.pos) }

// Get returns the unit under the cursor, or nil.
func (s *Stream) Get() *BasicUnit {
	if !s.IsValid() {
		return nil
	}
	return s.doc.units[s.pos]
}

// Anchors returns every span of type t (or a subtype) that begins at a
// visible unit and ends inside the window, in document order.
func (s *Stream) Anchors(t string) []ir.Span {
	var out []ir.Span
	for i := s.doc.unitIndex(s.begin); s.inWindow(i); i++ {
		if !s.visible(i) {
			continue
		}
		for _, a := range s.doc.units[i].begins[t] {
			if a.End <= s.end {
				out = append(out, a)
			}
		}
	}
	return out
}

// Estimate returns a cheap upper bound on len(Anchors(t)).
func (s *Stream) Estimate(t string) int { return s.doc.Count(t) }

// Next returns the candidates of type t adjacent to from. With after, these
// are the spans beginning at the first visible unit at or after from.End;
// otherwise the spans ending at the last visible unit at or before
// from.Begin. Candidates must lie inside the window.
func (s *Stream) Next(from ir.Span, t string, after bool) []ir.Span {
	var out []ir.Span
	if after {
		i := s.doc.unitIndex(from.End)
		for i >= 0 && s.inWindow(i) && !s.visible(i) {
			i++
		}
		if !s.visible(i) {
			return nil
		}
		for _, a := range s.doc.units[i].begins[t] {
			if a.End <= s.end {
				out = append(out, a)
			}
		}
		return out
	}
	i := s.doc.unitIndex(from.Begin - 1)
	for i >= 0 && s.inWindow(i) && !s.visible(i) {
		i--
	}
	if !s.visible(i) {
		return nil
	}
	for _, a := range s.doc.units[i].ends[t] {
		if a.Begin >= s.begin {
			out = append(out, a)
		}
	}
	return out
}

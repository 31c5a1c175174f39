package stream

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/spanrule/internal/ir"
)

var (
	// ErrInvalidRange is returned for empty, inverted, or out-of-text spans.
	ErrInvalidRange = errors.New("invalid span range")
	// ErrUnknownSpan is returned when removing a span the document does not hold.
	ErrUnknownSpan = errors.New("unknown span")
)

// BasicUnit is an atomic stream position [Begin, End). Anchors are indexed
// under the span's own type and every ancestor type.
type BasicUnit struct {
	begin, end int
	begins     map[string][]ir.Span
	ends       map[string][]ir.Span
	partOf     map[string]int
}

func newUnit(begin, end int) *BasicUnit {
	return &BasicUnit{
		begin:  begin,
		end:    end,
		begins: map[string][]ir.Span{},
		ends:   map[string][]ir.Span{},
		partOf: map[string]int{},
	}
}

// Begin returns the unit's start offset.
func (u *BasicUnit) Begin() int { return u.begin }

// End returns the unit's end offset.
func (u *BasicUnit) End() int { return u.end }

// BeginAnchors returns the spans of type t (or a subtype) beginning at u,
// in document order.
func (u *BasicUnit) BeginAnchors(t string) []ir.Span { return slices.Clone(u.begins[t]) }

// EndAnchors returns the spans of type t (or a subtype) ending at u.
func (u *BasicUnit) EndAnchors(t string) []ir.Span { return slices.Clone(u.ends[t]) }

// IsPartOf reports whether a span of type t (or a subtype) covers u.
func (u *BasicUnit) IsPartOf(t string) bool { return u.partOf[t] > 0 }

// split cuts u at offset at and returns the right piece. Begin anchors stay
// on u, end anchors move to the right piece, coverage is copied to both.
func (u *BasicUnit) split(at int) *BasicUnit {
	right := &BasicUnit{
		begin:  at,
		end:    u.end,
		begins: map[string][]ir.Span{},
		ends:   u.ends,
		partOf: maps.Clone(u.partOf),
	}
	u.end = at
	u.ends = map[string][]ir.Span{}
	return right
}

func (u *BasicUnit) String() string {
	return fmt.Sprintf("unit[%d,%d)", u.begin, u.end)
}

// Document is the text, its type system, and every span over it.
type Document struct {
	text   string
	types  *ir.TypeSystem
	units  []*BasicUnit
	spans  map[int64]ir.Span
	counts map[string]int
	seq    Sequencer
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithSequencer sets the span ID source. Defaults to a fresh Counter.
func WithSequencer(s Sequencer) DocumentOption {
	return func(d *Document) {
		d.seq = s
	}
}

// NewDocument creates a document with no spans. Non-empty text starts as a
// single basic unit.
func NewDocument(text string, types *ir.TypeSystem, opts ...DocumentOption) *Document {
	if types == nil {
		types = ir.NewTypeSystem()
	}
	d := &Document{
		text:   text,
		types:  types,
		spans:  map[int64]ir.Span{},
		counts: map[string]int{},
		seq:    NewCounter(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(text) > 0 {
		d.units = []*BasicUnit{newUnit(0, len(text))}
	}
	return d
}

// Text returns the document text.
func (d *Document) Text() string { return d.text }

// Types returns the document's type system.
func (d *Document) Types() *ir.TypeSystem { return d.types }

// Units returns the number of basic units.
func (d *Document) Units() int { return len(d.units) }

// CoveredText returns the text under s, or "" if s is out of range.
func (d *Document) CoveredText(s ir.Span) string {
	if s.Begin < 0 || s.End > len(d.text) || s.Begin > s.End {
		return ""
	}
	return d.text[s.Begin:s.End]
}

// Span looks up a span by ID.
func (d *Document) Span(id int64) (ir.Span, bool) {
	s, ok := d.spans[id]
	return s, ok
}

// Spans returns every span in document order.
func (d *Document) Spans() []ir.Span {
	out := slices.Collect(maps.Values(d.spans))
	slices.SortFunc(out, ir.CompareSpans)
	return out
}

// SpansOf returns the spans of type t or any subtype, in document order.
func (d *Document) SpansOf(t string) []ir.Span {
	var out []ir.Span
	for _, s := range d.spans {
		if d.types.IsSubtype(s.Type, t) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, ir.CompareSpans)
	return out
}

// Count returns the number of spans of type t or any subtype.
func (d *Document) Count(t string) int { return d.counts[t] }

// AddSpan creates a span of type typ over [begin, end) and indexes it.
func (d *Document) AddSpan(typ string, begin, end int) (ir.Span, error) {
	if !d.types.Has(typ) {
		return ir.Span{}, fmt.Errorf("add span %s: %w", typ, ir.ErrUnknownType)
	}
	if begin < 0 || end > len(d.text) || begin >= end {
		return ir.Span{}, fmt.Errorf("add span %s[%d,%d): %w", typ, begin, end, ErrInvalidRange)
	}
	d.splitAt(begin)
	d.splitAt(end)

	s := ir.Span{ID: d.seq.Next(), Type: typ, Begin: begin, End: end}
	first := d.units[d.unitIndex(begin)]
	last := d.units[d.unitIndex(end-1)]
	for _, t := range d.types.Ancestors(typ) {
		first.begins[t] = insertSorted(first.begins[t], s)
		last.ends[t] = insertSorted(last.ends[t], s)
		d.counts[t]++
		d.eachUnit(s, func(u *BasicUnit) { u.partOf[t]++ })
	}
	d.spans[s.ID] = s
	return s, nil
}

// RemoveSpan deletes s and its anchors. Units are not merged back.
func (d *Document) RemoveSpan(s ir.Span) error {
	stored, ok := d.spans[s.ID]
	if !ok {
		return fmt.Errorf("remove span %d: %w", s.ID, ErrUnknownSpan)
	}
	first := d.units[d.unitIndex(stored.Begin)]
	last := d.units[d.unitIndex(stored.End-1)]
	for _, t := range d.types.Ancestors(stored.Type) {
		first.begins[t] = removeSorted(first.begins[t], stored)
		last.ends[t] = removeSorted(last.ends[t], stored)
		d.counts[t]--
		d.eachUnit(stored, func(u *BasicUnit) { u.partOf[t]-- })
	}
	delete(d.spans, stored.ID)
	return nil
}

// unitIndex returns the index of the unit containing offset, or -1.
func (d *Document) unitIndex(offset int) int {
	i, found := slices.BinarySearchFunc(d.units, offset, func(u *BasicUnit, off int) int {
		return cmp.Compare(u.begin, off)
	})
	if found {
		return i
	}
	if i > 0 && d.units[i-1].end > offset {
		return i - 1
	}
	return -1
}

func (d *Document) splitAt(offset int) {
	if offset <= 0 || offset >= len(d.text) {
		return
	}
	i := d.unitIndex(offset)
	u := d.units[i]
	if u.begin == offset {
		return
	}
	d.units = slices.Insert(d.units, i+1, u.split(offset))
}

func (d *Document) eachUnit(s ir.Span, fn func(*BasicUnit)) {
	for i := d.unitIndex(s.Begin); i >= 0 && i < len(d.units) && d.units[i].begin < s.End; i++ {
		fn(d.units[i])
	}
}

func insertSorted(list []ir.Span, s ir.Span) []ir.Span {
	i, _ := slices.BinarySearchFunc(list, s, ir.CompareSpans)
	return slices.Insert(list, i, s)
}

func removeSorted(list []ir.Span, s ir.Span) []ir.Span {
	i, found := slices.BinarySearchFunc(list, s, ir.CompareSpans)
	if !found {
		return list
	}
	return slices.Delete(list, i, i+1)
}

// Package stream implements the span stream that rule elements match
// against.
//
// A Document owns the text, its TypeSystem, and every span. The text is
// partitioned into basic units: the finest intervals induced by all span
// boundaries. Each unit indexes, per type and per ancestor type, the spans
// that begin at it and the spans that end at it (its anchors), and counts
// the spans of each type that cover it.
//
// A Stream is a cursor over the visible units of a Document, optionally
// restricted to a window. Units covered by a filtered type (SPACE and BREAK
// by default) are invisible: the cursor and adjacency lookups skip them.
//
// Offsets are byte offsets into the NFC-normalized UTF-8 text.
//
// Adding or removing spans updates the affected units before the call
// returns, so anchor reads that follow always see the change. Streams are
// not safe for concurrent use.
package stream

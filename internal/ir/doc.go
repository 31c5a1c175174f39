// Package ir provides the foundational types for spanrule.
//
// This package contains span, type-system, and value definitions only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Spans are immutable half-open intervals [Begin, End) over document text
//   - Every span type descends from AnnotationType
//   - Values are a sealed tagged union; the Kind of a value never changes
//   - All JSON tags use snake_case
//   - Logical sequence numbers only, never wall-clock timestamps
package ir

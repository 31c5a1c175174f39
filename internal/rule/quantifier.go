package rule

import "fmt"

// Mode selects how a quantifier extends a match.
type Mode int

const (
	// Greedy takes as many repetitions as it can.
	Greedy Mode = iota
	// Reluctant stops as soon as the minimum is met and the next element
	// would match.
	Reluctant
	// Possessive extends like Greedy but never retries after a partly
	// matched repetition of a composed element.
	Possessive
)

func (m Mode) suffix() string {
	switch m {
	case Reluctant:
		return "?"
	case Possessive:
		return "+"
	}
	return ""
}

// Repetition is one attempted repetition of an element, in matching order.
type Repetition struct {
	Matched bool
}

// ContinueContext is what a quantifier may inspect when deciding whether to
// attempt another repetition.
type ContinueContext struct {
	// Count is the number of matched repetitions so far.
	Count int

	// LastMatched reports whether the latest repetition matched.
	LastMatched bool

	// NextMatches reports whether the next sibling would match right after
	// the latest repetition. Nil when there is no next sibling.
	NextMatches func() bool
}

// Quantifier controls repetition of a rule element. Quantifiers never touch
// the stream; they only inspect match-tree state already gathered.
type Quantifier interface {
	// Evaluate returns how many leading repetitions to keep, or ok=false if
	// the minimum cannot be met.
	Evaluate(reps []Repetition) (keep int, ok bool)

	// Continue decides whether another repetition should be attempted.
	Continue(after bool, ctx ContinueContext) bool

	// Optional reports whether zero repetitions are acceptable.
	Optional() bool

	// Backtracks reports whether a failed composed repetition may be
	// retried from the last accepted one.
	Backtracks() bool

	String() string
}

// MinMax is the quantifier every script quantifier compiles to. Max < 0
// means unbounded.
type MinMax struct {
	Min  int
	Max  int
	Mode Mode
}

// Normal matches exactly once.
func Normal() MinMax { return MinMax{Min: 1, Max: 1} }

// Star matches zero or more times.
func Star(mode Mode) MinMax { return MinMax{Min: 0, Max: -1, Mode: mode} }

// Plus matches one or more times.
func Plus(mode Mode) MinMax { return MinMax{Min: 1, Max: -1, Mode: mode} }

// Question matches zero or one time.
func Question(mode Mode) MinMax { return MinMax{Min: 0, Max: 1, Mode: mode} }

// Range matches between min and max times. max < 0 is unbounded.
func Range(min, max int, mode Mode) (MinMax, error) {
	if min < 0 || max == 0 || (max > 0 && max < min) {
		return MinMax{}, &MatchError{
			Code:    ErrCodeInvalidQuantifier,
			Message: fmt.Sprintf("invalid range [%d,%d]", min, max),
			Rule:    -1,
		}
	}
	return MinMax{Min: min, Max: max, Mode: mode}, nil
}

// Evaluate keeps the leading matched repetitions, capped at Max.
func (q MinMax) Evaluate(reps []Repetition) (int, bool) {
	keep := 0
	for keep < len(reps) && reps[keep].Matched {
		keep++
	}
	if keep < q.Min {
		return 0, false
	}
	if q.Max >= 0 && keep > q.Max {
		keep = q.Max
	}
	return keep, true
}

// Continue attempts another repetition while the last one matched and Max
// is not reached. Reluctant quantifiers stop once Min is met and the next
// sibling would match, or when there is no next sibling.
func (q MinMax) Continue(after bool, ctx ContinueContext) bool {
	if !ctx.LastMatched {
		return false
	}
	if q.Max >= 0 && ctx.Count >= q.Max {
		return false
	}
	if q.Mode != Reluctant || ctx.Count < q.Min {
		return true
	}
	return ctx.NextMatches != nil && !ctx.NextMatches()
}

func (q MinMax) Optional() bool   { return q.Min == 0 }
func (q MinMax) Backtracks() bool { return q.Mode != Possessive }

func (q MinMax) String() string {
	switch {
	case q.Min == 1 && q.Max == 1:
		return ""
	case q.Min == 0 && q.Max < 0:
		return "*" + q.Mode.suffix()
	case q.Min == 1 && q.Max < 0:
		return "+" + q.Mode.suffix()
	case q.Min == 0 && q.Max == 1:
		return "?" + q.Mode.suffix()
	case q.Max < 0:
		return fmt.Sprintf("[%d,]%s", q.Min, q.Mode.suffix())
	}
	return fmt.Sprintf("[%d,%d]%s", q.Min, q.Max, q.Mode.suffix())
}

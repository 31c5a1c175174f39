package rule

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps bounds the continuations one rule application may run.
const DefaultMaxSteps = 1_000_000

// QuotaEnforcer counts work-stack steps of one rule application.
//
// Matching always terminates, since every continuation either consumes a
// unit of the stream or moves up the element tree. The quota catches
// pathological rules over large documents before they consume unbounded
// time.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a quota with the given limit. A limit <= 0
// disables enforcement.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step of rule and fails once the limit is passed.
func (q *QuotaEnforcer) Check(rule int) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{Rule: rule, Steps: q.current, Limit: q.maxSteps}
	}
	return nil
}

// Steps returns how many steps have run.
func (q *QuotaEnforcer) Steps() int { return q.current }

// StepsExceededError is returned when a rule application exceeds the step
// quota. The application stops; matches recorded so far are kept.
type StepsExceededError struct {
	Rule  int
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("rule %d exceeded max steps quota: %d steps > %d limit",
		e.Rule, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

package rule

import (
	"errors"
	"fmt"
)

// MatchErrorCode categorizes match errors.
type MatchErrorCode string

const (
	// ErrCodeInvalidQuantifier indicates a quantifier with impossible bounds.
	ErrCodeInvalidQuantifier MatchErrorCode = "INVALID_QUANTIFIER"

	// ErrCodeNullEvaluation indicates match-tree state the matcher relies on
	// was missing.
	ErrCodeNullEvaluation MatchErrorCode = "NULL_EVALUATION"

	// ErrCodeActionFailed indicates an action returned an error.
	ErrCodeActionFailed MatchErrorCode = "ACTION_FAILED"

	// ErrCodeConditionFailed indicates a condition could not be evaluated
	// (not that it evaluated to false).
	ErrCodeConditionFailed MatchErrorCode = "CONDITION_FAILED"
)

// MatchError is a defect surfaced to the driver. Ordinary match failure is
// never a MatchError.
type MatchError struct {
	Code    MatchErrorCode
	Message string

	// Rule is the rule index, -1 if unknown.
	Rule int

	// Element is the element's script form.
	Element string

	Err error
}

// Error implements the error interface.
func (e *MatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Element != "" {
		msg += fmt.Sprintf(" (rule=%d, element=%s)", e.Rule, e.Element)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *MatchError) Unwrap() error { return e.Err }

// IsActionError returns true if err is an ACTION_FAILED MatchError.
// Uses errors.As to handle wrapped errors.
func IsActionError(err error) bool {
	return hasCode(err, ErrCodeActionFailed)
}

// IsConditionError returns true if err is a CONDITION_FAILED MatchError.
func IsConditionError(err error) bool {
	return hasCode(err, ErrCodeConditionFailed)
}

func hasCode(err error, code MatchErrorCode) bool {
	var me *MatchError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

func newElementError(code MatchErrorCode, el Element, msg string, err error) *MatchError {
	me := &MatchError{Code: code, Message: msg, Rule: -1, Err: err}
	if el != nil {
		me.Element = el.String()
		if r := ruleOf(el); r != nil {
			me.Rule = r.ID
		}
	}
	return me
}

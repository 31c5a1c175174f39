package env

import (
	"errors"
	"fmt"

	"github.com/roach88/spanrule/internal/ir"
)

// VarErrorCode categorizes environment errors.
type VarErrorCode string

const (
	// ErrCodeUndeclared indicates a variable that no enclosing block declares.
	ErrCodeUndeclared VarErrorCode = "UNDECLARED"

	// ErrCodeRedeclared indicates a second declaration in the same block.
	ErrCodeRedeclared VarErrorCode = "REDECLARED"

	// ErrCodeKindMismatch indicates a value whose kind does not fit the
	// declared kind or list element kind.
	ErrCodeKindMismatch VarErrorCode = "KIND_MISMATCH"
)

// VarError is returned by Environment and Block operations.
type VarError struct {
	Code VarErrorCode
	Name string

	// Want and Got are set for ErrCodeKindMismatch.
	Want ir.Kind
	Got  ir.Kind
}

// Error implements the error interface.
func (e *VarError) Error() string {
	if e.Code == ErrCodeKindMismatch {
		return fmt.Sprintf("%s: variable %s wants %s, got %s", e.Code, e.Name, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: variable %s", e.Code, e.Name)
}

// IsUndeclared returns true if err is an UNDECLARED VarError.
func IsUndeclared(err error) bool {
	return hasCode(err, ErrCodeUndeclared)
}

// IsKindMismatch returns true if err is a KIND_MISMATCH VarError.
func IsKindMismatch(err error) bool {
	return hasCode(err, ErrCodeKindMismatch)
}

func hasCode(err error, code VarErrorCode) bool {
	var ve *VarError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

func undeclared(name string) *VarError {
	return &VarError{Code: ErrCodeUndeclared, Name: name}
}

func mismatch(name string, want ir.Kind, got ir.Value) *VarError {
	k := ir.KindInvalid
	if got != nil {
		k = got.Kind()
	}
	return &VarError{Code: ErrCodeKindMismatch, Name: name, Want: want, Got: k}
}

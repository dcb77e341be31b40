package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch is returned when label, prediction and probability vectors differ in length.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrLabelDomain is returned when a label or prediction is not 0 or 1.
	ErrLabelDomain = errors.New("label outside {0, 1}")
	// ErrEmptyInput is returned for zero-length inputs.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidScore is returned when a probability or score is NaN.
	ErrInvalidScore = errors.New("score is NaN")
	// ErrSingleClass is returned by MaximizeYoudenJ when the labels contain only one class.
	ErrSingleClass = errors.New("only one class present")
)

// ValidationError describes an input contract violation: which argument is wrong and why.
// It unwraps to one of the sentinel errors above, so callers can match it with errors.Is.
type ValidationError struct {
	Field string
	Index int // -1 when the violation is not tied to a single element
	err   error
	msg   string
}

// Error returns the text description of the violation.
func (ve *ValidationError) Error() string {
	if ve.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %s: %s", ve.Field, ve.Index, ve.err, ve.msg)
	}
	return fmt.Sprintf("%s: %s: %s", ve.Field, ve.err, ve.msg)
}

// Unwrap returns the sentinel error.
func (ve *ValidationError) Unwrap() error {
	return ve.err
}

func newValidationError(field string, index int, err error, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field: field,
		Index: index,
		err:   err,
		msg:   fmt.Sprintf(format, args...),
	}
}

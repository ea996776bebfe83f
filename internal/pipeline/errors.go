package pipeline

import (
	"errors"
	"fmt"
)

// SaveErrorCode categorizes batch save failures.
type SaveErrorCode string

const (
	// ErrCodeDuplicateRowTarget indicates two pending writes resolved to
	// the same row identity in one batch.
	ErrCodeDuplicateRowTarget SaveErrorCode = "DUPLICATE_ROW_TARGET"

	// ErrCodeUnresolvedKey indicates an update or delete whose pre-save
	// row identity could not be resolved.
	ErrCodeUnresolvedKey SaveErrorCode = "UNRESOLVED_KEY"

	// ErrCodeExecFailed indicates a statement failed during batch
	// execution; the batch was rolled back.
	ErrCodeExecFailed SaveErrorCode = "EXEC_FAILED"

	// ErrCodeUnknownTable indicates a batch row references a table the
	// model does not declare.
	ErrCodeUnknownTable SaveErrorCode = "UNKNOWN_TABLE"
)

// SaveError is a structured batch save failure.
type SaveError struct {
	Code      SaveErrorCode
	Message   string
	Table     string
	SaveToken string
	Err       error // wrapped cause, if any
}

// Error implements the error interface.
func (e *SaveError) Error() string {
	switch {
	case e.Table != "" && e.SaveToken != "":
		return fmt.Sprintf("%s: %s (table=%s, save=%s)", e.Code, e.Message, e.Table, e.SaveToken)
	case e.Table != "":
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the wrapped cause.
func (e *SaveError) Unwrap() error { return e.Err }

// IsDuplicateRowTarget reports whether err is a duplicate-row-target
// failure. Uses errors.As to handle wrapped errors.
func IsDuplicateRowTarget(err error) bool {
	var se *SaveError
	return errors.As(err, &se) && se.Code == ErrCodeDuplicateRowTarget
}

// IsUnresolvedKey reports whether err is an unresolved-key failure.
func IsUnresolvedKey(err error) bool {
	var se *SaveError
	return errors.As(err, &se) && se.Code == ErrCodeUnresolvedKey
}

package schema

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error code constants, unified across loading and compilation.
const (
	ErrCodeGeneric     = "S001" // Generic/unknown error
	ErrCodeScanError   = "S002" // Directory scan error
	ErrCodeNoFiles     = "S003" // No CUE files found
	ErrCodeLoadFailed  = "S004" // CUE load failed
	ErrCodeNotFound    = "S005" // Path not found
	ErrCodeBuildFailed = "S006" // CUE build failed

	// Table validation errors
	ErrCodeTableColumns = "S101" // No columns defined
	ErrCodeTableKey     = "S102" // Missing or invalid primary key
	ErrCodeColumnField  = "S103" // Invalid column field
	ErrCodeComparerKind = "S104" // Unknown comparer kind
	ErrCodeForeignKey   = "S105" // Invalid foreign key
)

// LoadError is a schema loading failure with an error code and, when
// available, the CUE source position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CompileError is a per-table compilation failure, tagged with the field
// that caused it.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// mapFieldToErrorCode maps a compile error field to a load error code.
func mapFieldToErrorCode(field string) string {
	switch field {
	case "columns", "columns.*":
		return ErrCodeTableColumns
	case "primaryKey":
		return ErrCodeTableKey
	case "comparer":
		return ErrCodeComparerKind
	case "foreignKeys", "foreignKeys.*":
		return ErrCodeForeignKey
	case "name", "type", "generated", "mappings":
		return ErrCodeColumnField
	default:
		return ErrCodeGeneric
	}
}

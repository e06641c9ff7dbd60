package segmentation

import "fmt"

// Reason classifies a ValidationError.
type Reason string

const (
	ReasonUnknownColumn   Reason = "unknown_column"
	ReasonInvalidRange    Reason = "invalid_range"
	ReasonInvalidValue    Reason = "invalid_value"
	ReasonDuplicateColumn Reason = "duplicate_column"
	ReasonInvalidTable    Reason = "invalid_table"
)

// ValidationError is a client-caused filter problem. Column names the
// offending column, or the table for ReasonInvalidTable.
type ValidationError struct {
	Column string
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonUnknownColumn:
		return "Invalid filter column: " + e.Column
	case ReasonInvalidRange:
		return "Invalid range filter on " + e.Column
	case ReasonInvalidValue:
		return "Invalid filter value on " + e.Column
	case ReasonDuplicateColumn:
		return "Duplicate filter column: " + e.Column
	case ReasonInvalidTable:
		return "Invalid table: " + e.Column
	default:
		return fmt.Sprintf("invalid filter %s: %s", e.Column, e.Reason)
	}
}

func invalidValue(column string) error {
	return &ValidationError{Column: column, Reason: ReasonInvalidValue}
}

// QueryExecutionError wraps a failure running a count query.
type QueryExecutionError struct {
	Table string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("count %q: %v", e.Table, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

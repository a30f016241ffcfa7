package domain

import (
	"errors"
	"fmt"
)

// ErrReportingInterrupted matches every ReportingInterruptedError.
var ErrReportingInterrupted = errors.New("reporting interrupted")

// DataLoadingError is raised when a query cannot produce rows for a band,
// including a link parameter missing from a result row.
type DataLoadingError struct {
	Band  string
	Query string
	Err   error
}

func (e *DataLoadingError) Error() string {
	return fmt.Sprintf("an error occurred while loading data for band [%s] and query [%s]: %v", e.Band, e.Query, e.Err)
}

func (e *DataLoadingError) Unwrap() error {
	return e.Err
}

// ValidationError reports invalid query text or parameters detected before a
// query is executed.
type ValidationError struct {
	Query  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Query == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for query [%s]: %s", e.Query, e.Reason)
}

func NewValidationError(query, format string, args ...any) *ValidationError {
	return &ValidationError{Query: query, Reason: fmt.Sprintf(format, args...)}
}

// ReportingInterruptedError signals that a report run was cancelled, not failed.
type ReportingInterruptedError struct {
	Band  string
	Cause error
}

func (e *ReportingInterruptedError) Error() string {
	if e.Band == "" {
		return "reporting interrupted"
	}
	return fmt.Sprintf("reporting interrupted while extracting band [%s]", e.Band)
}

func (e *ReportingInterruptedError) Unwrap() error {
	return e.Cause
}

func (e *ReportingInterruptedError) Is(target error) bool {
	return target == ErrReportingInterrupted
}

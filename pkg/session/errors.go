package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTab means the tab was closed or never existed
	ErrUnknownTab = errors.New("tab not found")
	// ErrInactiveTab means the tab exists but is not the active one
	ErrInactiveTab = errors.New("tab is not active")
)

// ValidationError rejects user input before any remote call is made
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// LastTabError refuses to close the only remaining tab
type LastTabError struct {
	TabID string
}

func (e *LastTabError) Error() string {
	return "cannot close the last open document"
}

// RaceAbortError means the tab stopped being active, or was closed, while an
// operation was in flight. Its results were discarded. Partial is set when
// earlier steps had already been applied by the service.
type RaceAbortError struct {
	Op      string
	TabID   string
	Partial bool
	Err     error
}

func (e *RaceAbortError) Error() string {
	msg := fmt.Sprintf("%s on %s abandoned", e.Op, e.TabID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Partial {
		msg += " (some changes were already applied)"
	}
	return msg
}

func (e *RaceAbortError) Unwrap() error {
	return e.Err
}

// PartialMergeError is a merge that failed after Merged files had already
// been added to the tab's document by the service
type PartialMergeError struct {
	TabID  string
	Merged int
	Err    error
}

func (e *PartialMergeError) Error() string {
	return fmt.Sprintf("merge stopped after %d file(s): %v", e.Merged, e.Err)
}

func (e *PartialMergeError) Unwrap() error {
	return e.Err
}

// IsRaceAbort reports whether err is a RaceAbortError
func IsRaceAbort(err error) bool {
	var raceErr *RaceAbortError
	return errors.As(err, &raceErr)
}

// IsValidation reports whether err was caused by rejected input
func IsValidation(err error) bool {
	var validationErr *ValidationError
	var lastTabErr *LastTabError
	return errors.As(err, &validationErr) || errors.As(err, &lastTabErr)
}

func invalid(op, format string, args ...interface{}) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

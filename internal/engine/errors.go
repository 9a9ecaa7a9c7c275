package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes categorize engine failures. Failures cross the public
// boundary as result envelopes, but the typed errors below carry the
// structure (cycle paths, missing endpoints) internally and for callers
// that work below the envelope.
const (
	ErrCodeValidation       = "VALIDATION"
	ErrCodeCycle            = "CYCLE_DETECTED"
	ErrCodeMissingReference = "MISSING_REFERENCE"
	ErrCodeNotFound         = "NOT_FOUND"
)

// ValidationError reports malformed or missing input: empty part numbers,
// non-positive qty, bad rollup parameters.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// CycleError reports that a candidate mutation would create a cycle.
// Path is the ordered part-number walk, closed by repeating the first
// node: e.g. [C A B C].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "Cycle detected: " + strings.Join(e.Path, " -> ")
}

// MissingReferenceError reports relationship endpoints absent from the
// catalog when dangling references are disallowed. PartNumbers is sorted
// and deduplicated.
type MissingReferenceError struct {
	PartNumbers []string
}

func (e *MissingReferenceError) Error() string {
	return "Missing part(s): " + strings.Join(e.PartNumbers, ", ")
}

// NotFoundError reports that the target of an operation does not exist.
type NotFoundError struct {
	Kind string // "Relationship", "Snapshot", "Part"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

// IsCycleError reports whether err is (or wraps) a CycleError.
func IsCycleError(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// IsNotFoundError reports whether err is (or wraps) a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

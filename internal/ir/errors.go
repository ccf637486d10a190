package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ResolutionError is a fatal error detected while building the dependency
// graph. Resolution has no recovery path: the pass stops at the first one.
//
// ResolutionError includes structured fields so a failure can be diagnosed
// without re-running the pass.
type ResolutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Quantity is the requested capability and type, when relevant.
	Quantity Quantity

	// Consumer identifies the node that made the request ("Core" for
	// terminal requests).
	Consumer string

	// Candidates lists the candidates that were considered.
	Candidates []string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeUnsatisfiable indicates no candidate matches a requirement.
	ErrCodeUnsatisfiable ErrorCode = "UNSATISFIABLE_REQUIREMENT"

	// ErrCodeAmbiguous indicates several candidates remain after tie-breaking.
	ErrCodeAmbiguous ErrorCode = "AMBIGUOUS_REQUIREMENT"

	// ErrCodeInvalidLoopManager indicates a loop-manager dependency resolved
	// to a functor that cannot manage loops.
	ErrCodeInvalidLoopManager ErrorCode = "INVALID_LOOP_MANAGER"

	// ErrCodeAmbiguousAncestry indicates the model tie-break walk reached a
	// model with more than one parent.
	ErrCodeAmbiguousAncestry ErrorCode = "AMBIGUOUS_MODEL_ANCESTRY"

	// ErrCodeBackendRuleViolation indicates a forced-match rule was already
	// broken among bound backend requirements.
	ErrCodeBackendRuleViolation ErrorCode = "BACKEND_RULE_VIOLATION"

	// ErrCodeCyclicGraph indicates the dependency graph contains a cycle.
	ErrCodeCyclicGraph ErrorCode = "CYCLIC_GRAPH"

	// ErrCodeDuplicateRule indicates more than one configuration entry
	// matches the same node or requirement.
	ErrCodeDuplicateRule ErrorCode = "DUPLICATE_RULE"
)

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %s", e.Code, e.Message)
	if e.Quantity.Capability != "" {
		fmt.Fprintf(&buf, " (quantity=%s", e.Quantity)
		if e.Consumer != "" {
			fmt.Fprintf(&buf, ", consumer=%s", e.Consumer)
		}
		buf.WriteString(")")
	} else if e.Consumer != "" {
		fmt.Fprintf(&buf, " (consumer=%s)", e.Consumer)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&buf, "; candidates: %s", strings.Join(e.Candidates, ", "))
	}
	return buf.String()
}

// IsCode reports whether err is a ResolutionError with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// CodeOf returns the code of a ResolutionError, or "" for other errors.
func CodeOf(err error) ErrorCode {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// NewUnsatisfiableError creates a ResolutionError for a requirement with no
// viable candidate.
func NewUnsatisfiableError(q Quantity, consumer, message string) *ResolutionError {
	return &ResolutionError{
		Code:     ErrCodeUnsatisfiable,
		Message:  message,
		Quantity: q,
		Consumer: consumer,
	}
}

// NewAmbiguousError creates a ResolutionError for a requirement with more
// than one remaining candidate.
func NewAmbiguousError(q Quantity, consumer, message string, candidates []string) *ResolutionError {
	return &ResolutionError{
		Code:       ErrCodeAmbiguous,
		Message:    message,
		Quantity:   q,
		Consumer:   consumer,
		Candidates: candidates,
	}
}

// NewCycleError creates a ResolutionError for a cyclic graph. path lists the
// node labels along one cycle, starting and ending at the same node.
func NewCycleError(path []string) *ResolutionError {
	return &ResolutionError{
		Code:       ErrCodeCyclicGraph,
		Message:    fmt.Sprintf("dependency graph contains a cycle: %s", strings.Join(path, " → ")),
		Candidates: path,
	}
}

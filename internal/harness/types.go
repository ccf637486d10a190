package harness

import (
	"github.com/roach88/depres/internal/resolver"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expected error (or success) occurred and every assertion held.
	Pass bool `json:"pass"`

	// ErrorCode is the resolution error code, or empty on success.
	ErrorCode string `json:"error_code,omitempty"`

	// ErrorMessage is the full resolution error text.
	ErrorMessage string `json:"error_message,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Resolution is the resolved pass, nil when resolution failed.
	Resolution *resolver.Result `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

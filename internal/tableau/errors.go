// Package tableau provides a narrow client for the Tableau REST API:
// personal-access-token sessions, workbook/datasource resolution by name,
// extract-refresh triggering, and job status polling. It is deliberately
// not a general Tableau client.
package tableau

import (
	"errors"
	"fmt"
)

// Sentinel errors for the refresh-trigger taxonomy.
// Use errors.Is(err, tableau.ErrNotFound) to check.
var (
	// ErrAuth means the sign-in request was rejected or the server was
	// unreachable at session-open time. Fatal, never retried.
	ErrAuth = errors.New("tableau: authentication failed")

	// ErrNotFound means resolution matched no resource for the given
	// (name, project, kind). The caller must fix its input.
	ErrNotFound = errors.New("tableau: resource not found")

	// ErrAmbiguous means resolution matched more than one resource.
	// Refreshing an arbitrary pick would risk hitting the wrong resource,
	// so this is a hard error rather than a first-match policy.
	ErrAmbiguous = errors.New("tableau: resource name is ambiguous")

	// ErrTrigger means the server rejected the refresh request, e.g. the
	// resource has no extract, the token lacks permission, or the
	// resource is busy with another job.
	ErrTrigger = errors.New("tableau: refresh rejected")

	// ErrPoll means job status polling failed repeatedly, beyond the
	// transient-failure retry budget.
	ErrPoll = errors.New("tableau: job status polling failed")
)

// APIError wraps a sentinel error with the HTTP status and the error body
// fields the Tableau REST API returns (code, summary, detail).
type APIError struct {
	StatusCode int
	Code       string // Tableau error code, e.g. "401002"
	Summary    string
	Detail     string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tableau: HTTP %d (code %s): %s: %s", e.StatusCode, e.Code, e.Summary, e.Detail)
	}

	return fmt.Sprintf("tableau: HTTP %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Package engineerr defines the typed error kinds surfaced at the core's
// API boundaries (spec §7), wrapping the teacher's plain-error idiom with
// a machine-readable Kind rather than introducing a third-party errors
// library the corpus does not use.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind is one of the six error kinds the core may surface.
type Kind string

const (
	InvalidParameters Kind = "invalid_parameters"
	UnknownStrategy   Kind = "unknown_strategy"
	NoCandidates      Kind = "no_candidates"
	SchemaMismatch    Kind = "schema_mismatch"
	DataUnavailable   Kind = "data_unavailable"
	Internal          Kind = "internal"
)

// hints are the suggested next steps attached to each kind at API
// boundaries, per spec §7.
var hints = map[Kind]string{
	InvalidParameters: "check the parameter values against the documented ranges",
	UnknownStrategy:   "call ListStrategies to see the available strategy names",
	NoCandidates:      "widen the delta target range or the DTE window",
	SchemaMismatch:    "load data first; verify the quotes table has the required columns",
	DataUnavailable:   "load data first, or configure a remote provider fallback",
	Internal:          "this is likely a bug; please report it",
}

// Error is the typed error returned at core API boundaries.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with its default hint.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Hint: hints[kind]}
}

// Wrap builds an Error of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Hint: hints[kind], Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Package beadserr models core errors as a tagged sum instead of a
// language-specific exception hierarchy: a machine-readable Kind, a human
// message, and optional recovery hints. Front-ends map Kind to an exit code;
// the core never swallows an error and never retries internally.
package beadserr

import "fmt"

// Kind is a machine-readable error category (spec.md §7).
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAmbiguousID     Kind = "ambiguous_id"
	KindIDCollision     Kind = "id_collision"
	KindValidation      Kind = "validation"
	KindInvalidStatus   Kind = "invalid_status"
	KindInvalidPriority Kind = "invalid_priority"
	KindDependencyCycle Kind = "dependency_cycle"
	KindSelfDependency  Kind = "self_dependency"
	KindJSONLParse      Kind = "jsonl_parse"
	KindPrefixMismatch  Kind = "prefix_mismatch"
	KindPathNotAllowed  Kind = "path_not_allowed"
	KindDatabaseNotFound Kind = "database_not_found"
	KindDatabaseLocked  Kind = "database_locked"
	KindSchemaMismatch  Kind = "schema_mismatch"
	KindIO              Kind = "io"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Error is the core's sole error representation. It satisfies the standard
// error interface and also carries Unwrap so callers can still use
// errors.Is/As against a wrapped cause.
type Error struct {
	Kind          Kind
	Message       string
	RecoveryHints []string
	Cause         error

	// Payload carries kind-specific structured detail, e.g. the cycle path
	// for KindDependencyCycle or the line number for KindJSONLParse.
	Payload map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithHints returns a copy of e with recovery hints attached.
func (e *Error) WithHints(hints ...string) *Error {
	cp := *e
	cp.RecoveryHints = hints
	return &cp
}

// WithPayload returns a copy of e with a payload key set.
func (e *Error) WithPayload(key string, value any) *Error {
	cp := *e
	cp.Payload = make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		cp.Payload[k] = v
	}
	cp.Payload[key] = value
	return &cp
}

// Is makes errors.Is(err, target) match when target is a *Error with the
// same Kind, e.g. errors.Is(err, beadserr.New(beadserr.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, otherwise
// KindInternal.
func KindOf(err error) Kind {
	var be *Error
	for err != nil {
		if b, ok := err.(*Error); ok {
			be = b
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if be == nil {
		return KindInternal
	}
	return be.Kind
}

// ExitCode maps a Kind to the exit-code table from spec.md §6.
func ExitCode(k Kind) int {
	switch k {
	case KindDatabaseNotFound, KindDatabaseLocked, KindSchemaMismatch:
		return 2
	case KindNotFound, KindAmbiguousID:
		return 3
	case KindValidation, KindInvalidStatus, KindInvalidPriority:
		return 4
	case KindDependencyCycle, KindSelfDependency:
		return 5
	case KindJSONLParse, KindPrefixMismatch, KindConflict:
		return 6
	case KindIO, KindPathNotAllowed:
		return 8
	case KindInternal:
		return 1
	default:
		return 1
	}
}

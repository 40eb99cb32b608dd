// Package errs defines the tagged error kinds nerdmem propagates from
// internal components up to cmd/nerdmem's process boundary, and the exit
// code each kind maps to.
package errs

import "fmt"

// Kind tags an error with the handling policy it requires.
type Kind string

const (
	// KindConfigError marks unparseable or contradictory configuration.
	// Fatal at startup.
	KindConfigError Kind = "config_error"

	// KindBackendUnavailable marks a semantic embedder or native vector
	// backend that failed to initialize. Recovered locally by falling
	// back to the hash embedder / pure-Go vector table.
	KindBackendUnavailable Kind = "backend_unavailable"

	// KindDimensionMismatch marks an embedding whose byte length
	// disagrees with the configured dimension. Recovered by re-embedding;
	// surfaced by the validator.
	KindDimensionMismatch Kind = "dimension_mismatch"

	// KindStoreBusy marks a SQL write lock timeout. One retry, then
	// reported.
	KindStoreBusy Kind = "store_busy"

	// KindCorruption marks a schema or index invariant violation.
	// Non-recoverable; the validate command exits 3.
	KindCorruption Kind = "corruption"

	// KindTransientIO marks a file-mirror write failure. Logged and
	// swallowed.
	KindTransientIO Kind = "transient_io"

	// KindInvalidEvent marks an unknown event name from the host.
	KindInvalidEvent Kind = "invalid_event"
)

// Error is a tagged error carrying a Kind alongside the usual message/cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a tagged error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// As extracts the tagged *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var target *Error
	if err == nil {
		return nil, false
	}
	for {
		if e, ok := err.(*Error); ok {
			target = e
			return target, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
		if err == nil {
			return nil, false
		}
	}
}

// ExitCode maps an error to the process exit code a hook invocation or the
// validate command should use. Exit codes: 0 success, 1 transient failure
// (host should retry once), 2 configuration error, 3 corruption detected
// (validate only).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	tagged, ok := As(err)
	if !ok {
		return 1
	}
	switch tagged.Kind {
	case KindConfigError, KindInvalidEvent:
		return 2
	case KindCorruption:
		return 3
	default:
		return 1
	}
}

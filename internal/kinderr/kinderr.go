// Package kinderr implements the structured error taxonomy of spec §7:
// a Kind enum, not a set of distinct Go types, so callers can branch on
// Kind() without a type switch per error, mirroring the teacher's
// internal/agent/errors.go ToolError pattern.
package kinderr

import "fmt"

// Kind is the error-kind taxonomy of spec §7 (raised-by / recovery table).
type Kind string

const (
	KindUnknownAgentType     Kind = "UnknownAgentType"
	KindInvalidDefinition    Kind = "InvalidDefinition"
	KindAgentLimitReached    Kind = "AgentLimitReached"
	KindCircuitBreakerOpen   Kind = "CircuitBreakerOpen"
	KindTimeout              Kind = "Timeout"
	KindLLMError             Kind = "LLMError"
	KindToolNotAllowed       Kind = "ToolNotAllowed"
	KindUnknownTool          Kind = "UnknownTool"
	KindValidationBlocked    Kind = "ValidationBlocked"
	KindPendingRequestTimeout Kind = "PendingRequestTimeout"
)

// recoverable mirrors the "Recovery" column of spec §7's table. Fatal
// kinds terminate the turn; recoverable kinds let the orchestrator fall
// back or continue per its enableGracefulDegradation setting.
var recoverable = map[Kind]bool{
	KindUnknownAgentType:      false,
	KindInvalidDefinition:     false,
	KindAgentLimitReached:     true,
	KindCircuitBreakerOpen:    true,
	KindTimeout:               true,
	KindLLMError:              true,
	KindToolNotAllowed:        true,
	KindUnknownTool:           true,
	KindValidationBlocked:     true,
	KindPendingRequestTimeout: true,
}

// Error is a structured error carrying a Kind, a human message, and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Recoverable reports whether the orchestrator may degrade gracefully
// instead of terminating the turn for this error's Kind.
func (e *Error) Recoverable() bool {
	return recoverable[e.Kind]
}

// New constructs a kinded error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a kinded error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	kerr, ok := err.(*Error)
	if !ok {
		return false
	}
	return kerr.Kind == kind
}

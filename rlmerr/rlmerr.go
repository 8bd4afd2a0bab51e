// Package rlmerr defines the error kinds produced by the recursive LLM
// analysis pipeline. Errors carry a Kind for callers that need to branch
// on category (e.g. the orchestrator isolating subcall failures) and wrap
// an underlying cause where one exists.
package rlmerr

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error for programmatic handling.
type Kind string

const (
	// KindQueryValidation marks an empty or over-long user query.
	KindQueryValidation Kind = "query_validation"
	// KindNoChunks marks a search/load stage that produced zero chunks.
	KindNoChunks Kind = "no_chunks"
	// KindToolLoopExceeded marks an agentic loop that exhausted its iteration budget.
	KindToolLoopExceeded Kind = "tool_loop_exceeded"
	// KindResponseParse marks a failed JSON decode of an agent's response.
	KindResponseParse Kind = "response_parse"
	// KindToolExecution marks a tool dispatch or argument-validation failure.
	KindToolExecution Kind = "tool_execution"
	// KindProvider marks an LLM provider transport or API failure.
	KindProvider Kind = "provider"
	// KindUnsupportedProvider marks an unknown provider name in config.
	KindUnsupportedProvider Kind = "unsupported_provider"
	// KindAPIKeyMissing marks a config build with no API key.
	KindAPIKeyMissing Kind = "api_key_missing"
	// KindOrchestration marks an internal invariant violation or missing buffer.
	KindOrchestration Kind = "orchestration"
)

// Error is the concrete error type returned across the pipeline.
type Error struct {
	Kind Kind
	// Message is a human-readable description.
	Message string
	// Hint carries an actionable suggestion (populated for KindNoChunks).
	Hint string
	// Content carries the original agent response text that failed to parse
	// (populated for KindResponseParse).
	Content string
	// MaxIterations carries the iteration ceiling that was exceeded
	// (populated for KindToolLoopExceeded).
	MaxIterations int
	// ToolName carries the offending tool's name (populated for KindToolExecution).
	ToolName string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNoChunks:
		return fmt.Sprintf("no chunks: %s", e.Hint)
	case KindToolLoopExceeded:
		return fmt.Sprintf("tool loop exceeded: max_iterations=%d", e.MaxIterations)
	case KindResponseParse:
		return fmt.Sprintf("response parse failed: %s", e.Message)
	case KindToolExecution:
		return fmt.Sprintf("tool %q failed: %s", e.ToolName, e.Message)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, letting
// callers write errors.Is(err, rlmerr.New(rlmerr.KindNoChunks, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// New constructs a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NoChunks constructs a KindNoChunks error with the given diagnostic hint.
func NoChunks(hint string) *Error {
	return &Error{Kind: KindNoChunks, Message: "no chunks available for analysis", Hint: hint}
}

// ToolLoopExceeded constructs a KindToolLoopExceeded error.
func ToolLoopExceeded(maxIterations int) *Error {
	return &Error{Kind: KindToolLoopExceeded, MaxIterations: maxIterations}
}

// ResponseParse constructs a KindResponseParse error carrying the original content.
func ResponseParse(message, content string) *Error {
	return &Error{Kind: KindResponseParse, Message: message, Content: content}
}

// ToolExecution constructs a KindToolExecution error for the named tool.
func ToolExecution(name, message string) *Error {
	return &Error{Kind: KindToolExecution, ToolName: name, Message: message}
}

// Orchestration constructs a KindOrchestration error.
func Orchestration(message string) *Error {
	return &Error{Kind: KindOrchestration, Message: message}
}

// KindOf extracts the Kind from err, if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Package events defines the classified dispatch failure taxonomy and the
// reporter channel failures are surfaced through. Nothing in the engine
// throws or panics across the dispatch boundary; every failure becomes a
// CommandError pushed to a Reporter.
package events

// ErrorKind classifies a dispatch failure so operators and monitors can
// react differently per class (alert on repeated UNKNOWN_COMMAND, log
// HANDLER_EXECUTION_FAILED, and so on).
type ErrorKind string

const (
	// KindEmptyMessage - input text empty or absent.
	KindEmptyMessage ErrorKind = "EMPTY_MESSAGE"
	// KindParseError - input text is not well-formed JSON.
	KindParseError ErrorKind = "PARSE_ERROR"
	// KindMissingCommand - parsed envelope lacks a non-empty command field.
	KindMissingCommand ErrorKind = "MISSING_COMMAND"
	// KindUnknownCommand - no registry entry for the given name.
	KindUnknownCommand ErrorKind = "UNKNOWN_COMMAND"
	// KindConversionFailed - parameters do not match the declared input shape.
	KindConversionFailed ErrorKind = "CONVERSION_FAILED"
	// KindHandlerExecutionFailed - the handler body itself failed.
	KindHandlerExecutionFailed ErrorKind = "HANDLER_EXECUTION_FAILED"
)

// CommandError is the reported failure value for one dispatch call.
type CommandError struct {
	Command   string    `json:"command"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp,omitempty"`
}

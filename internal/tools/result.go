package tools

import "fmt"

// ErrorKind classifies a failed tool execution.
type ErrorKind string

const (
	// ErrorNone means the execution succeeded.
	ErrorNone ErrorKind = ""

	// ErrorUnknownTool means the requested name is not registered.
	ErrorUnknownTool ErrorKind = "unknown_tool"

	// ErrorInvalidArguments means a required parameter was missing or
	// a value could not be coerced to its declared type.
	ErrorInvalidArguments ErrorKind = "invalid_arguments"

	// ErrorExecution means the tool itself failed.
	ErrorExecution ErrorKind = "execution_failed"
)

// Result is the outcome of one tool execution. It is ephemeral: the
// agent loop feeds it back to the model as a tool message and drops it.
type Result struct {
	OK      bool      `json:"ok"`
	Content string    `json:"content"`
	Kind    ErrorKind `json:"error,omitempty"`
}

func success(content string) Result {
	return Result{OK: true, Content: content}
}

func failure(kind ErrorKind, detail string) Result {
	return Result{OK: false, Kind: kind, Content: detail}
}

// ForModel renders the result as the tool-message content the model
// synthesizes its answer from. Failures are described so the model can
// explain them to the user instead of the turn aborting.
func (r Result) ForModel() string {
	if r.OK {
		return r.Content
	}
	return fmt.Sprintf("Tool error (%s): %s", r.Kind, r.Content)
}

// ArgError reports a problem with a single argument, naming the
// offending parameter. The registry maps it to ErrorInvalidArguments.
type ArgError struct {
	Param  string
	Reason string
}

// Error implements the error interface.
func (e *ArgError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Reason)
}

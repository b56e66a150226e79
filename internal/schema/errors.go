package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVisibility means a field did not declare visibility for
	// every audience.
	ErrMissingVisibility = errors.New("missing visibility entry")

	// ErrRequiredWithoutDefault means a required field is covered by
	// neither a field default nor CreateDefault.
	ErrRequiredWithoutDefault = errors.New("required field has no default")

	// ErrSummarizeWithoutSection means a summarize function was declared
	// without a prompt section to place its output in.
	ErrSummarizeWithoutSection = errors.New("summarize declared without prompt section")

	// ErrSummarizedWithoutSummary means a field is llm "summarized" but the
	// schema has no summarize function, so it could never reach a prompt.
	ErrSummarizedWithoutSummary = errors.New("summarized field without summarize function")

	// ErrLLMNotDevVisible means a field is shown raw to the llm audience but
	// hidden from developer tooling.
	ErrLLMNotDevVisible = errors.New("llm-visible field hidden from dev")

	// ErrInvalidDescription covers malformed descriptions (empty type,
	// unknown field types, duplicate fields, enum without values).
	ErrInvalidDescription = errors.New("invalid schema description")

	// ErrDefaultInvalid means the synthesized default does not pass Validate.
	ErrDefaultInvalid = errors.New("default does not validate")
)

// BuildError collects every problem found while building one schema.
type BuildError struct {
	Type    string
	Version int
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("schema %s@%d: %v", e.Type, e.Version, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Issue is one validation finding.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

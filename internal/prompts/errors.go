package prompts

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched via errors.Is by the typed errors below
var (
	// ErrUnknownPrompt indicates a template name missing from the registry
	ErrUnknownPrompt = errors.New("unknown prompt")

	// ErrCircularPromptReference indicates templates that reference each other in a loop
	ErrCircularPromptReference = errors.New("circular prompt reference")

	// ErrMissingContextVariable indicates a placeholder with no value in the invocation context
	ErrMissingContextVariable = errors.New("missing context variable")
)

// UnknownPromptError names a template that does not exist. ReferencedBy is
// the template holding the {prompt[...]} reference, or "" for a direct lookup.
type UnknownPromptError struct {
	Name         string
	ReferencedBy string
}

func (e *UnknownPromptError) Error() string {
	if e.ReferencedBy != "" {
		return fmt.Sprintf("unknown prompt %q referenced by %q", e.Name, e.ReferencedBy)
	}
	return fmt.Sprintf("unknown prompt %q", e.Name)
}

func (e *UnknownPromptError) Is(target error) bool { return target == ErrUnknownPrompt }

// CircularPromptReferenceError carries the reference path that loops, with the
// repeated name at both ends.
type CircularPromptReferenceError struct {
	Cycle []string
}

func (e *CircularPromptReferenceError) Error() string {
	return fmt.Sprintf("circular prompt reference: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CircularPromptReferenceError) Is(target error) bool {
	return target == ErrCircularPromptReference
}

// MissingContextVariableError names the placeholder and the template it appears in
type MissingContextVariableError struct {
	Variable string
	Template string
}

func (e *MissingContextVariableError) Error() string {
	return fmt.Sprintf("prompt %q requires context variable %q", e.Template, e.Variable)
}

func (e *MissingContextVariableError) Is(target error) bool {
	return target == ErrMissingContextVariable
}

package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one model call: a system prompt and the user input
type Request struct {
	System string
	Prompt string
}

// Completer sends a request to a language model and returns its text reply
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var (
	// ErrModelInvocation is matched by every ModelInvocationError
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrAborted is returned when a request is stopped on purpose before it is sent
	ErrAborted = errors.New("model request aborted")

	// ErrEmptyPrompt is returned for a request without input
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// ModelInvocationError wraps a failure of the model backend
type ModelInvocationError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *ModelInvocationError) Error() string {
	name := e.Model
	if name == "" {
		name = "model"
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("%s failed after %d attempts: %v", name, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", name, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

func (e *ModelInvocationError) Is(target error) bool { return target == ErrModelInvocation }

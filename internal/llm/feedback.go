package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/llmgit/internal/prompts"
	"github.com/rs/zerolog/log"
)

// ErrAttemptsExhausted is wrapped by CompleteWithFeedback when no reply was accepted
var ErrAttemptsExhausted = errors.New("no acceptable model reply")

// CompleteWithFeedback calls the model until accept takes a reply, at most
// attempts times. Errors returned by accept are appended to the input of the
// next attempt under "Previous errors:". Model failures are returned at once.
func CompleteWithFeedback(ctx context.Context, c Completer, req Request, attempts int, accept func(string) error) (string, error) {
	if attempts < 1 {
		attempts = 1
	}

	var errs []error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := c.Complete(ctx, Request{
			System: req.System,
			Prompt: prompts.BuildFeedbackInput(req.Prompt, errs),
		})
		if err != nil {
			return "", err
		}

		if err := accept(out); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Msg("Model reply rejected, trying again")
			errs = append(errs, err)
			continue
		}
		return out, nil
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, errs[len(errs)-1])
}

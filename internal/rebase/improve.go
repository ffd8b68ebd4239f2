package rebase

import (
	"context"
	"fmt"
	"strings"

	"github.com/llmgit/internal/llm"
	"github.com/llmgit/internal/prompts"
	"github.com/rs/zerolog/log"
)

// PromptName is the template used to ask for an improved plan
const PromptName = "improve_rebase_plan"

// Improver asks the model for a better plan and only accepts candidates that
// pass Validate
type Improver struct {
	Prompts     *prompts.Registry
	Model       llm.Completer
	Vars        prompts.Vars
	Extend      string // extra user instructions
	MaxAttempts int

	AllowNewCommands bool
}

// Improve returns a validated replacement for original. history is the model
// input describing the commits in the plan. Validation failures are fed back
// to the model until MaxAttempts is reached.
func (im *Improver) Improve(ctx context.Context, original *Plan, history string) (*Plan, error) {
	system, err := im.Prompts.Extend(PromptName, im.Extend, im.Vars.With(prompts.VarRebasePlan, original.String()))
	if err != nil {
		return nil, err
	}

	var accepted *Plan
	_, err = llm.CompleteWithFeedback(ctx, im.Model, llm.Request{System: system, Prompt: history}, im.MaxAttempts,
		func(output string) error {
			candidate := Parse(candidateText(output))
			candidate.trailingNewline = original.trailingNewline
			if err := Validate(original, candidate, AllowNewCommands(im.AllowNewCommands)); err != nil {
				log.Debug().Err(err).Msg("Rejected rebase plan candidate")
				return err
			}
			accepted = candidate
			return nil
		})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// ImproveFile improves the todo file at path in place. On any error the file
// is left as it was.
func (im *Improver) ImproveFile(ctx context.Context, path, history string) (*Plan, error) {
	original, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(original.Commits()) == 0 {
		log.Debug().Str("path", path).Msg("Rebase plan has no commits, nothing to improve")
		return original, nil
	}

	improved, err := im.Improve(ctx, original, history)
	if err != nil {
		return nil, fmt.Errorf("improving rebase plan: %w", err)
	}
	if err := WriteFile(path, improved); err != nil {
		return nil, err
	}
	log.Info().
		Str("path", path).
		Int("commits", len(improved.Commits())).
		Msg("Rebase plan rewritten")
	return improved, nil
}

// candidateText takes the plan out of a fenced block when the model used one
func candidateText(output string) string {
	if block, ok := llm.ExtractCodeBlock(output); ok {
		return block
	}
	return strings.TrimSpace(output)
}

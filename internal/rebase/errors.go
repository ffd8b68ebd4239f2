package rebase

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRebaseCommand indicates a candidate line that is not a usable instruction
	ErrInvalidRebaseCommand = errors.New("invalid rebase command")

	// ErrRebasePlanIntegrity indicates a candidate plan that loses, invents or duplicates commits
	ErrRebasePlanIntegrity = errors.New("rebase plan integrity violation")
)

// InvalidRebaseCommandError names the offending line of a candidate plan
type InvalidRebaseCommandError struct {
	LineNo int
	Line   string
	Token  string
	Reason string
}

func (e *InvalidRebaseCommandError) Error() string {
	msg := fmt.Sprintf("line %d: invalid rebase command %q in %q", e.LineNo, e.Token, e.Line)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidRebaseCommandError) Is(target error) bool { return target == ErrInvalidRebaseCommand }

// RebasePlanIntegrityError describes a commit-level inconsistency between the
// original and the candidate plan. LineNo is 0 when no single line is at fault.
type RebasePlanIntegrityError struct {
	LineNo int
	Line   string
	Hash   string
	Reason string
}

func (e *RebasePlanIntegrityError) Error() string {
	if e.LineNo > 0 {
		return fmt.Sprintf("line %d: %s: %s (%q)", e.LineNo, e.Reason, e.Hash, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Hash)
}

func (e *RebasePlanIntegrityError) Is(target error) bool { return target == ErrRebasePlanIntegrity }

package rebase

import (
	"errors"
	"strings"
)

// minHashPrefix is the shortest abbreviation accepted when a candidate and
// the original spell the same commit differently
const minHashPrefix = 4

// ValidateOption changes what Validate accepts
type ValidateOption func(*validateOptions)

type validateOptions struct {
	allowNewCommands bool
}

// AllowNewCommands accepts exec, reset, merge and update-ref lines that do
// not appear in the original plan
func AllowNewCommands(allow bool) ValidateOption {
	return func(o *validateOptions) {
		o.allowNewCommands = allow
	}
}

// addsCommands reports whether the command runs a shell command or moves a
// ref. Lines with such commands must come from the original plan.
func addsCommands(c Command) bool {
	switch c {
	case Exec, Reset, Merge, UpdateRef:
		return true
	}
	return false
}

// Validate checks a candidate plan against the plan git generated. All
// problems found are returned joined; each matches ErrInvalidRebaseCommand
// or ErrRebasePlanIntegrity.
func Validate(original, candidate *Plan, opts ...ValidateOption) error {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		problems []error
		verbatim = map[string]bool{} // every original line, trimmed
		active   = map[string]bool{} // original instruction lines, trimmed
		comments = map[string]bool{} // original comment bodies, uncommented
		commands = map[string]bool{} // original exec, reset, merge and update-ref lines
		commits  []string
		labels   []string
	)
	for _, l := range original.Lines {
		trimmed := strings.TrimSpace(l.Raw)
		verbatim[trimmed] = true
		switch {
		case l.Command == Comment:
			if body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#")); body != "" {
				comments[body] = true
			}
		case l.Command.IsInstruction():
			active[trimmed] = true
			if addsCommands(l.Command) {
				commands[commandKey(l)] = true
			}
			if l.Command.TakesCommit() && l.Hash != "" {
				commits = append(commits, l.Hash)
			} else if l.Command == Label && l.Hash != "" {
				labels = append(labels, l.Hash)
			}
		}
	}

	usedCommits := make([]bool, len(commits))
	seenLabels := make([]bool, len(labels))

	for i, l := range candidate.Lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(l.Raw)
		if !l.Command.IsInstruction() {
			continue
		}

		if comments[trimmed] && !active[trimmed] {
			problems = append(problems, &RebasePlanIntegrityError{
				LineNo: lineNo, Line: l.Raw, Hash: l.Hash,
				Reason: "commented line turned into a command",
			})
			continue
		}

		switch {
		case l.Command == Unknown:
			if !verbatim[trimmed] {
				problems = append(problems, &InvalidRebaseCommandError{
					LineNo: lineNo, Line: l.Raw, Token: l.Token,
					Reason: "unknown command",
				})
			}

		case l.Command.HasRef() && l.Hash == "":
			problems = append(problems, &InvalidRebaseCommandError{
				LineNo: lineNo, Line: l.Raw, Token: l.Token,
				Reason: "missing commit",
			})

		case addsCommands(l.Command):
			if !o.allowNewCommands && !commands[commandKey(l)] {
				problems = append(problems, &RebasePlanIntegrityError{
					LineNo: lineNo, Line: l.Raw, Hash: l.Payload,
					Reason: string(l.Command) + " not in the original plan",
				})
			}

		case l.Command.TakesCommit():
			idx, ambiguous := findCommit(commits, l.Hash)
			if ambiguous {
				problems = append(problems, &RebasePlanIntegrityError{
					LineNo: lineNo, Line: l.Raw, Hash: l.Hash,
					Reason: "abbreviation matches more than one commit",
				})
				continue
			}
			if idx < 0 {
				problems = append(problems, &RebasePlanIntegrityError{
					LineNo: lineNo, Line: l.Raw, Hash: l.Hash,
					Reason: "commit not in the original plan",
				})
				continue
			}
			if usedCommits[idx] {
				problems = append(problems, &RebasePlanIntegrityError{
					LineNo: lineNo, Line: l.Raw, Hash: l.Hash,
					Reason: "commit used more than once",
				})
				continue
			}
			usedCommits[idx] = true
			if l.Command == Drop && l.Payload == "" && !active[trimmed] {
				problems = append(problems, &RebasePlanIntegrityError{
					LineNo: lineNo, Line: l.Raw, Hash: l.Hash,
					Reason: "drop without explanation",
				})
			}

		case l.Command == Label:
			idx := findLabel(labels, l.Hash)
			if idx < 0 {
				problems = append(problems, &RebasePlanIntegrityError{
					LineNo: lineNo, Line: l.Raw, Hash: l.Hash,
					Reason: "label not in the original plan",
				})
				continue
			}
			seenLabels[idx] = true
		}
	}

	for i, h := range commits {
		if !usedCommits[i] {
			problems = append(problems, &RebasePlanIntegrityError{
				Hash:   h,
				Reason: "commit missing from the candidate plan",
			})
		}
	}
	for i, name := range labels {
		if !seenLabels[i] {
			problems = append(problems, &RebasePlanIntegrityError{
				Hash:   name,
				Reason: "label missing from the candidate plan",
			})
		}
	}

	return errors.Join(problems...)
}

// commandKey identifies a line by its full command name and arguments, so
// "x make" and "exec make" compare equal
func commandKey(l Line) string {
	return string(l.Command) + " " + strings.Join(strings.Fields(l.Payload), " ")
}

// findCommit returns the index of the original commit matching hash, or -1.
// Hashes match case-insensitively, and an abbreviated hash matches its
// longer form when it has at least minHashPrefix characters. ambiguous is
// set when the hash matches more than one original commit.
func findCommit(commits []string, hash string) (idx int, ambiguous bool) {
	h := strings.ToLower(hash)
	idx = -1
	for i, o := range commits {
		o = strings.ToLower(o)
		if o == h {
			return i, false
		}
		short, long := o, h
		if len(short) > len(long) {
			short, long = long, short
		}
		if len(short) >= minHashPrefix && strings.HasPrefix(long, short) {
			if idx >= 0 {
				return -1, true
			}
			idx = i
		}
	}
	return idx, false
}

// findLabel returns the index of the label named name, or -1. Label names
// are refs and must match exactly.
func findLabel(labels []string, name string) int {
	for i, l := range labels {
		if l == name {
			return i
		}
	}
	return -1
}

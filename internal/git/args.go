package git

import (
	"fmt"
	"strings"
)

// DiffOptions selects what a diff covers
type DiffOptions struct {
	Staged  bool
	Unified int      // lines of context, 0 keeps git's default
	Exclude []string // pathspec patterns left out of the diff
	Rev     string   // compare against this revision instead of the index
}

// DiffArgs builds the arguments of git diff
func DiffArgs(o DiffOptions) []string {
	args := []string{"diff"}
	if o.Unified > 0 {
		args = append(args, fmt.Sprintf("--unified=%d", o.Unified))
	}
	if o.Staged {
		args = append(args, "--staged")
	}
	if o.Rev != "" {
		args = append(args, o.Rev)
	}
	if len(o.Exclude) > 0 {
		args = append(args, "--")
		for _, p := range o.Exclude {
			args = append(args, ":(exclude)"+p)
		}
	}
	return args
}

// CommitArgs builds git commit reading the message from file
func CommitArgs(amend, noEdit bool, file string) []string {
	args := []string{"commit"}
	if amend {
		args = append(args, "--amend")
	}
	if !noEdit {
		args = append(args, "--edit")
	}
	if file != "" {
		args = append(args, "-F", file)
	}
	return args
}

// ApplyArgs builds git apply for a patch file
func ApplyArgs(cached bool, file string) []string {
	args := []string{"apply"}
	if cached {
		args = append(args, "--cached")
	}
	return append(args, file)
}

// LogArgs builds the log command describing a commit spec. A range
// (a..b) is logged, a single revision is shown.
func LogArgs(spec string) []string {
	if strings.Contains(spec, "..") {
		return []string{"log", "--format=fuller", spec}
	}
	return []string{"show", "--stat", "--format=fuller", spec}
}

// HistoryArgs builds git show for the full messages and changed files of commits
func HistoryArgs(commits []string) []string {
	return append([]string{"show", "--no-patch", "--stat", "--format=fuller"}, commits...)
}

// TagArgs builds an annotated git tag with its message read from file
func TagArgs(name, file, rev string) []string {
	args := []string{"tag", "--annotate", name, "-F", file}
	if rev != "" {
		args = append(args, rev)
	}
	return args
}

// LastTagArgs finds the most recent tag reachable from rev
func LastTagArgs(rev string) []string {
	return []string{"describe", "--tags", "--abbrev=0", rev}
}

// TagListArgs lists tags, newest first
func TagListArgs() []string {
	return []string{"tag", "--list", "--sort=-creatordate"}
}

// MergeBaseArgs builds git merge-base
func MergeBaseArgs(a, b string) []string {
	return []string{"merge-base", a, b}
}

// CheckoutBranchArgs creates and switches to a branch
func CheckoutBranchArgs(name string) []string {
	return []string{"checkout", "-b", name}
}

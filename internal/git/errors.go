package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGitOperationFailed is wrapped by every GitError
var ErrGitOperationFailed = errors.New("git operation failed")

// GitError represents a failed git invocation with its arguments and stderr
type GitError struct {
	Args   []string
	Err    error
	Output string
}

func (e *GitError) Error() string {
	msg := "git " + strings.Join(e.Args, " ") + " failed"
	if out := strings.TrimSpace(e.Output); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GitError) Unwrap() error { return e.Err }

func (e *GitError) Is(target error) bool { return target == ErrGitOperationFailed }

package git

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Runner executes git subcommands
type Runner interface {
	// Output runs git and returns its stdout with surrounding whitespace trimmed
	Output(ctx context.Context, args ...string) (string, error)

	// Interactive runs git attached to the terminal, for commands that open
	// an editor. env entries are added to the process environment.
	Interactive(ctx context.Context, env []string, args ...string) error
}

// ExecRunner runs the git binary found in PATH
type ExecRunner struct {
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates a runner working in dir ("" means the current directory)
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Output implements Runner.Output
func (r *ExecRunner) Output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Strs("args", args).Msg("Running git")
	if err := cmd.Run(); err != nil {
		return "", &GitError{Args: args, Err: err, Output: stderr.String()}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Interactive implements Runner.Interactive
func (r *ExecRunner) Interactive(ctx context.Context, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	log.Debug().Strs("args", args).Strs("env", env).Msg("Running interactive git")
	if err := cmd.Run(); err != nil {
		return &GitError{Args: args, Err: err}
	}
	return nil
}

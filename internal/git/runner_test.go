package git

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitError(t *testing.T) {
	err := &GitError{
		Args:   []string{"apply", "p.diff"},
		Err:    errors.New("exit status 1"),
		Output: "error: patch failed\n",
	}

	assert.ErrorIs(t, err, ErrGitOperationFailed)
	assert.Equal(t, "git apply p.diff failed: error: patch failed: exit status 1", err.Error())
}

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := NewExecRunner(t.TempDir())
	ctx := context.Background()

	out, err := r.Output(ctx, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "git version"), out)

	_, err = r.Output(ctx, "no-such-subcommand")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGitOperationFailed)

	var gitErr *GitError
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, []string{"no-such-subcommand"}, gitErr.Args)
	assert.NotEmpty(t, gitErr.Output)
}

// fakeRunner records commands and answers from a table keyed by the joined args
type fakeRunner struct {
	outputs map[string]string
	calls   [][]string
}

func (f *fakeRunner) Output(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	out, ok := f.outputs[strings.Join(args, " ")]
	if !ok {
		return "", &GitError{Args: args, Err: errors.New("unexpected command")}
	}
	return out, nil
}

func (f *fakeRunner) Interactive(_ context.Context, _ []string, args ...string) error {
	f.calls = append(f.calls, args)
	return nil
}

func TestEditor(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"var GIT_EDITOR": "nano -w"}}
	editor, err := Editor(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "nano -w", editor)

	r = &fakeRunner{outputs: map[string]string{"var GIT_EDITOR": ""}}
	editor, err = Editor(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "vi", editor)
}

func TestWithTempFile(t *testing.T) {
	var seen string
	err := WithTempFile("msg-*.txt", "hello", func(path string) error {
		seen = path
		assert.FileExists(t, path)
		return nil
	})
	require.NoError(t, err)
	assert.NoFileExists(t, seen)

	boom := errors.New("boom")
	err = WithTempFile("msg-*.txt", "hello", func(string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

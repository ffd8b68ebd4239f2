package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// WithTempFile writes content to a temporary file, calls fn with its path and
// removes the file afterwards
func WithTempFile(pattern, content string, fn func(path string) error) error {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return fn(path)
}

// Editor returns the editor git is configured to use
func Editor(ctx context.Context, r Runner) (string, error) {
	editor, err := r.Output(ctx, "var", "GIT_EDITOR")
	if err != nil {
		return "", err
	}
	if editor == "" {
		return "vi", nil
	}
	return editor, nil
}

// EditFile opens path in editor. The editor string goes through the shell as
// git does with core.editor.
func EditFile(ctx context.Context, editor, path string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", editor+` "$@"`, editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running editor %q: %w", editor, err)
	}
	return nil
}

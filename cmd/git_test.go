package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgit/internal/config"
	"github.com/llmgit/internal/git"
	"github.com/llmgit/internal/llm"
	"github.com/llmgit/internal/prompts"
)

const stagedDiff = `diff --git a/auth/login.go b/auth/login.go
new file mode 100644
--- /dev/null
+++ b/auth/login.go
@@ -0,0 +1,3 @@
+package auth
+
+func Login() {}
`

// captureCommit makes the fake runner keep the message file content of git commit
func captureCommit(r *fakeRunner, msg *string) {
	r.onInteract = func(args []string) error {
		if args[0] != "commit" {
			return nil
		}
		data, err := os.ReadFile(args[len(args)-1])
		if err != nil {
			return err
		}
		*msg = string(data)
		return nil
	}
}

func stagedDiffRunner(r *fakeRunner, diff string) {
	r.handle = func(args []string) (string, error) {
		if args[0] == "diff" {
			return diff, nil
		}
		return "", &git.GitError{Args: args, Err: errors.New("unexpected command")}
	}
}

func TestCommit_MessageFromModelIsCommittedUnmodified(t *testing.T) {
	h := newHarness(t)
	h.repo.root = "/repo"
	h.repo.branch = "PROJ-42.add-login"
	stagedDiffRunner(h.runner, stagedDiff)
	h.model.replies = []string{"feat(auth): add login\n\nPROJ-42"}
	var msg string
	captureCommit(h.runner, &msg)

	require.NoError(t, h.run("git", "commit", "--no-edit"))

	assert.Equal(t, "feat(auth): add login\n\nPROJ-42", msg)
	require.Len(t, h.runner.interactive, 1)
	args := h.runner.interactive[0]
	assert.Equal(t, []string{"commit", "-F"}, args[:2])

	require.Len(t, h.model.requests, 1)
	req := h.model.requests[0]
	assert.Equal(t, stagedDiff, req.Prompt)
	assert.Contains(t, req.System, "/repo")
	assert.Contains(t, req.System, `"PROJ-42.add-login"`)
	assert.Contains(t, req.System, "issue or ticket identifier")
	assert.Contains(t, req.System, "Conventional Commits")
	assert.NotContains(t, req.System, "{prompt[")

	diffCall := h.runner.calls[0]
	assert.Equal(t, []string{"diff", "--unified=10", "--staged", "--", ":(exclude)package-lock.json"}, diffCall[:5])

	assert.Contains(t, h.stdout.String(), "feat(auth): add login")
}

func TestCommit_AmendWithPrompt(t *testing.T) {
	h := newHarness(t)
	h.repo.message = "feat: first try\n"
	stagedDiffRunner(h.runner, stagedDiff)
	h.model.replies = []string{"feat: add login"}
	var msg string
	captureCommit(h.runner, &msg)

	require.NoError(t, h.run("git", "commit", "--amend", "--include-prompt"))

	req := h.model.requests[0]
	assert.Contains(t, req.System, "feat: first try")
	assert.Contains(t, req.System, "is being amended")

	assert.True(t, strings.HasPrefix(msg, "feat: add login\n\n"+prompts.PromptSectionStart+"\n"))
	assert.True(t, strings.HasSuffix(msg, prompts.PromptSectionEnd+"\n"))

	args := h.runner.interactive[0]
	assert.Equal(t, []string{"commit", "--amend", "--edit", "-F"}, args[:4])
	assert.Contains(t, h.runner.calls[0], "HEAD^")
}

func TestCommit_ExtendPromptWithoutMetadata(t *testing.T) {
	h := newHarness(t)
	stagedDiffRunner(h.runner, stagedDiff)
	h.model.replies = []string{"feat: add login"}

	require.NoError(t, h.run("git", "commit", "--no-edit", "--add-metadata=false", "--extend-prompt", "Write it in French"))

	system := h.model.requests[0].System
	assert.Contains(t, system, "Write it in French")
	assert.Contains(t, system, "Additional instructions from the user")
	assert.NotContains(t, system, "issue or ticket identifier")
}

func TestCommit_NoStagedChanges(t *testing.T) {
	h := newHarness(t)
	stagedDiffRunner(h.runner, "")

	err := h.run("git", "commit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no staged changes")
	assert.Empty(t, h.model.requests)
	assert.Empty(t, h.runner.interactive)
}

func TestCommit_PromptErrorsStopBeforeTheModel(t *testing.T) {
	h := newHarness(t)
	h.writeRepoConfig(t, "prompts:\n  commit_message: \"{prompt[does_not_exist]}\"\n")
	stagedDiffRunner(h.runner, stagedDiff)

	err := h.run("git", "commit", "--no-edit")
	require.Error(t, err)
	assert.ErrorIs(t, err, prompts.ErrUnknownPrompt)
	assert.Empty(t, h.model.requests)
	assert.Empty(t, h.runner.interactive)
}

func TestCommit_AbortBeforeRequest(t *testing.T) {
	h := newHarness(t)
	t.Setenv("LLM_GIT_ABORT", "request")
	stagedDiffRunner(h.runner, stagedDiff)

	err := h.run("git", "commit", "--no-edit")
	assert.ErrorIs(t, err, llm.ErrAborted)
	assert.Empty(t, h.model.requests)
}

func TestCommit_Transcript(t *testing.T) {
	h := newHarness(t)
	stagedDiffRunner(h.runner, stagedDiff)
	h.model.replies = []string{"feat: add login"}
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, h.run("--log-dir", dir, "git", "commit", "--no-edit"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "feat: add login")
}

func TestCommit_ModelAndProviderFlags(t *testing.T) {
	h := newHarness(t)
	stagedDiffRunner(h.runner, stagedDiff)
	h.model.replies = []string{"feat: x"}

	var got struct{ provider, name string }
	base := h.env.NewModel
	h.env.NewModel = func(ctx context.Context, s config.ModelSettings, w io.Writer) (llm.Completer, string, error) {
		got.provider, got.name = s.Provider, s.Name
		return base(ctx, s, w)
	}

	require.NoError(t, h.run("--provider", "ollama", "-m", "llama3", "git", "commit", "--no-edit"))
	assert.Equal(t, "ollama", got.provider)
	assert.Equal(t, "llama3", got.name)
}

const patchReply = "Here you go:\n```diff\n--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new\n```\n"

func TestApply_RetriesUntilGitAcceptsThePatch(t *testing.T) {
	h := newHarness(t)
	var applied []string
	applyCalls := 0
	h.runner.handle = func(args []string) (string, error) {
		switch args[0] {
		case "diff":
			return "diff --git a/main.go b/main.go\n", nil
		case "apply":
			applyCalls++
			if applyCalls == 1 {
				return "", &git.GitError{Args: args, Err: errors.New("exit status 1"), Output: "error: patch failed: main.go:1"}
			}
			data, err := os.ReadFile(args[len(args)-1])
			require.NoError(t, err)
			applied = append(applied, string(data))
			return "", nil
		}
		return "", errors.New("unexpected")
	}
	h.model.replies = []string{"I cannot do that", patchReply, patchReply}

	require.NoError(t, h.run("git", "apply", "--cached", "rename old to new"))

	require.Len(t, h.model.requests, 3)
	assert.Contains(t, h.model.requests[0].System, "rename old to new")
	assert.Contains(t, h.model.requests[0].Prompt, "Result of `git diff`:")
	assert.Contains(t, h.model.requests[1].Prompt, "Previous errors:")
	assert.Contains(t, h.model.requests[1].Prompt, "no patch found")
	assert.Contains(t, h.model.requests[2].Prompt, "patch failed: main.go:1")

	require.Len(t, applied, 1)
	assert.Equal(t, "--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new\n", applied[0])
	assert.True(t, h.runner.called("apply", "--cached"))
	assert.Contains(t, h.stdout.String(), "main.go")
}

func TestApply_ReadsStdinWhenPiped(t *testing.T) {
	h := newHarness(t)
	h.env.StdinIsTerminal = func() bool { return false }
	h.env.Stdin = strings.NewReader("piped diff")
	h.runner.handle = func(args []string) (string, error) { return "", nil }
	h.model.replies = []string{patchReply}

	require.NoError(t, h.run("git", "apply", "do it"))
	assert.Contains(t, h.model.requests[0].Prompt, "piped diff")
	assert.False(t, h.runner.called("diff"))
}

func TestApply_GivesUpAfterThreeAttempts(t *testing.T) {
	h := newHarness(t)
	stagedDiffRunner(h.runner, "diff")
	h.model.replies = []string{"no code here"}

	err := h.run("git", "apply", "do it")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrAttemptsExhausted)
	assert.Len(t, h.model.requests, 3)
}

func TestApply_MissingInstructions(t *testing.T) {
	h := newHarness(t)
	err := h.run("git", "apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSTRUCTIONS")
}

func TestAdd_StagesMinimalFix(t *testing.T) {
	h := newHarness(t)
	h.runner.handle = func(args []string) (string, error) {
		if args[0] == "diff" {
			return "diff --git a/main.go b/main.go\n+fmt.Printn()\n", nil
		}
		return "", nil
	}
	h.model.replies = []string{patchReply}

	require.NoError(t, h.run("git", "add"))
	assert.Contains(t, h.model.requests[0].System, "Fix obvious mistakes")
	assert.True(t, h.runner.called("apply", "--cached"))
}

func TestCreateBranch(t *testing.T) {
	h := newHarness(t)
	h.repo.defaultBranch = "origin/main"
	h.runner.outputs["merge-base origin/main HEAD"] = "abc123"
	h.runner.outputs["log --format=fuller abc123..HEAD"] = "commit def456\n\n    add login form"
	h.runner.outputs["checkout -b feature/add-login"] = ""
	h.model.replies = []string{"`Feature/Add Login`\n"}

	require.NoError(t, h.run("git", "create-branch"))

	assert.Equal(t, "commit def456\n\n    add login form", h.model.requests[0].Prompt)
	assert.True(t, h.runner.called("checkout", "-b", "feature/add-login"))
	assert.Contains(t, h.stdout.String(), "Switched to a new branch 'feature/add-login'")
}

func TestCreateBranch_PreviewWithSpec(t *testing.T) {
	h := newHarness(t)
	h.runner.outputs["show --stat --format=fuller abc123"] = "commit abc123"
	h.model.replies = []string{"fix/typo"}

	require.NoError(t, h.run("git", "create-branch", "--preview", "abc123"))

	assert.Equal(t, "fix/typo\n", h.stdout.String())
	assert.False(t, h.runner.called("checkout"))
}

func TestTag(t *testing.T) {
	h := newHarness(t)
	h.runner.outputs["describe --tags --abbrev=0 HEAD"] = "v1.0.0"
	h.runner.outputs["log --format=fuller v1.0.0..HEAD"] = "commit 1\n    feat: login"
	h.runner.outputs["tag --list --sort=-creatordate"] = "v1.0.0\nv0.9.0"
	var notes string
	h.runner.handle = func(args []string) (string, error) {
		if args[0] == "tag" {
			data, err := os.ReadFile(args[4])
			require.NoError(t, err)
			notes = string(data)
			assert.Equal(t, []string{"tag", "--annotate", "v1.1.0", "-F"}, args[:4])
			assert.Len(t, args, 5)
			return "", nil
		}
		return "", errors.New("unexpected")
	}
	h.model.replies = []string{"v1.1.0\n\n## Features\n- login"}

	require.NoError(t, h.run("git", "tag"))

	req := h.model.requests[0]
	assert.Equal(t, "v1.0.0\nv0.9.0", req.Prompt)
	assert.Contains(t, req.System, "feat: login")
	assert.Equal(t, "## Features\n- login\n", notes)
	assert.Contains(t, h.stdout.String(), "Created tag v1.1.0")
}

func TestTag_PreviewWithoutPreviousTags(t *testing.T) {
	h := newHarness(t)
	h.runner.outputs["log --format=fuller HEAD"] = "commit 1"
	h.runner.outputs["tag --list --sort=-creatordate"] = ""
	h.model.replies = []string{"v0.1.0\n\nFirst release"}

	require.NoError(t, h.run("git", "tag", "--preview"))

	assert.Equal(t, "(no tags yet)", h.model.requests[0].Prompt)
	assert.Equal(t, "v0.1.0\n\nFirst release\n", h.stdout.String())
	assert.False(t, h.runner.called("tag", "--annotate"))
}

func TestDescribeStaged(t *testing.T) {
	h := newHarness(t)
	stagedDiffRunner(h.runner, stagedDiff)
	h.model.replies = []string{"Adds a login stub. One commit is enough."}

	require.NoError(t, h.run("git", "describe-staged"))

	out := h.stdout.String()
	assert.Contains(t, out, "Staged changes:")
	assert.Contains(t, out, "+func Login() {}")
	assert.Contains(t, out, "Adds a login stub.")
	assert.Contains(t, h.model.requests[0].System, "self-contained commits")
}

func TestDumpPrompts_OutsideRepository(t *testing.T) {
	h := newHarness(t)
	h.repo = nil

	require.NoError(t, h.run("git", "dump-prompts"))

	out := h.stdout.String()
	assert.Contains(t, out, "Available prompts:")
	assert.Contains(t, out, "commit_message\n")
	assert.Contains(t, out, "improve_rebase_plan\n")
	assert.Contains(t, out, "{pwd}")
	assert.NotContains(t, out, "{prompt[")
	assert.Empty(t, h.model.requests)
}

func TestDumpPrompts_ReportsBrokenTemplates(t *testing.T) {
	h := newHarness(t)
	h.writeRepoConfig(t, "prompts:\n  loop_a: \"{prompt[loop_b]}\"\n  loop_b: \"{prompt[loop_a]}\"\n")

	err := h.run("git", "dump-prompts")
	require.Error(t, err)
	assert.ErrorIs(t, err, prompts.ErrCircularPromptReference)
	assert.Contains(t, h.stdout.String(), "commit_message\n")
}

func TestGitCommands_RequireRepository(t *testing.T) {
	h := newHarness(t)
	h.repo = nil

	err := h.run("git", "commit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not inside a git repository")
}

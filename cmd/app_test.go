package cmd

import (
	"bytes"
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
	"github.com/llmgit/internal/github"
	"github.com/llmgit/internal/llm"
)

type fakeRepo struct {
	root          string
	branch        string
	message       string
	remote        string
	defaultBranch string
}

func (r *fakeRepo) Root() string                   { return r.root }
func (r *fakeRepo) CurrentBranch() (string, error) { return r.branch, nil }
func (r *fakeRepo) HeadMessage() (string, error)   { return r.message, nil }

func (r *fakeRepo) RemoteURL(name string) (string, error) {
	if r.remote == "" {
		return "", errors.New("no remote")
	}
	return r.remote, nil
}

func (r *fakeRepo) DefaultBranch(remote string) (string, error) {
	if r.defaultBranch == "" {
		return "", errors.New("no default branch")
	}
	return r.defaultBranch, nil
}

// fakeRunner answers git commands from a table keyed by the joined
// arguments, falling back to handle
type fakeRunner struct {
	outputs     map[string]string
	handle      func(args []string) (string, error)
	calls       [][]string
	interactive [][]string
	env         [][]string
	onInteract  func(args []string) error
}

func (f *fakeRunner) Output(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	if out, ok := f.outputs[strings.Join(args, " ")]; ok {
		return out, nil
	}
	if f.handle != nil {
		return f.handle(args)
	}
	return "", &git.GitError{Args: args, Err: errors.New("unexpected command")}
}

func (f *fakeRunner) Interactive(_ context.Context, env []string, args ...string) error {
	f.interactive = append(f.interactive, args)
	f.env = append(f.env, env)
	if f.onInteract != nil {
		return f.onInteract(args)
	}
	return nil
}

func (f *fakeRunner) called(prefix ...string) bool {
	for _, c := range f.calls {
		if len(c) >= len(prefix) && strings.Join(c[:len(prefix)], " ") == strings.Join(prefix, " ") {
			return true
		}
	}
	return false
}

// stubModel replays replies in order and records the requests
type stubModel struct {
	replies  []string
	requests []llm.Request
}

func (m *stubModel) Complete(_ context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return "", errors.New("HTTP 400 bad request: no reply scripted")
	}
	out := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return out, nil
}

type harness struct {
	env    *Env
	repo   *fakeRepo
	runner *fakeRunner
	model  *stubModel
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	prs    []github.PullRequest
	edited string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("LLM_GIT_CONFIG_DIR", t.TempDir())
	t.Setenv("LLM_GIT_ABORT", "")
	t.Setenv("LLM_GIT_SHOW_PROMPTS", "")

	wd := t.TempDir()
	h := &harness{
		repo:   &fakeRepo{root: wd, branch: "main"},
		runner: &fakeRunner{outputs: map[string]string{}},
		model:  &stubModel{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	h.env = &Env{
		Stdin:  strings.NewReader(""),
		Stdout: h.stdout,
		Stderr: h.stderr,
		Getwd: func() (string, error) {
			if h.repo != nil {
				return h.repo.root, nil
			}
			return wd, nil
		},
		Executable:      func() (string, error) { return "/usr/local/bin/llm-git", nil },
		StdinIsTerminal: func() bool { return true },
		NewRunner:       func(string) git.Runner { return h.runner },
		OpenRepo: func(string) (Repository, error) {
			if h.repo == nil {
				return nil, errors.New("repository does not exist")
			}
			return h.repo, nil
		},
		NewModel: func(context.Context, config.ModelSettings, io.Writer) (llm.Completer, string, error) {
			return h.model, "stub", nil
		},
		NewPullRequests: func(token, baseURL string) (PullRequestCreator, error) {
			return prRecorder{h}, nil
		},
		EditFile: func(_ context.Context, _ git.Runner, path string) error {
			if h.edited == "" {
				return nil
			}
			return os.WriteFile(path, []byte(h.edited), 0o644)
		},
	}
	return h
}

type prRecorder struct{ h *harness }

func (p prRecorder) CreatePullRequest(_ context.Context, pr github.PullRequest) (string, error) {
	p.h.prs = append(p.h.prs, pr)
	return "https://github.com/acme/widgets/pull/1", nil
}

func (h *harness) run(args ...string) error {
	return NewApp(h.env).RunContext(context.Background(), append([]string{"llm-git"}, args...))
}

// writeRepoConfig writes the repository override file
func (h *harness) writeRepoConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.repo.root, ".llm-git.yaml"), []byte(content), 0o644))
}

func TestNewEnv(t *testing.T) {
	env := NewEnv()
	assert.NotNil(t, env.NewRunner("."))
	assert.NotNil(t, env.NewModel)
	assert.NotNil(t, env.EditFile)
}

func TestGlobalFlags_UnknownLogLevel(t *testing.T) {
	h := newHarness(t)
	err := h.run("--log-level", "loud", "git", "dump-prompts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# keys\nexport LLM_GIT_TEST_A=\"quoted\"\nLLM_GIT_TEST_B = plain\nbroken line\n"), 0o600))
	t.Setenv("LLM_GIT_TEST_A", "")
	t.Setenv("LLM_GIT_TEST_B", "")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "quoted", os.Getenv("LLM_GIT_TEST_A"))
	assert.Equal(t, "plain", os.Getenv("LLM_GIT_TEST_B"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "sk****90", maskSecret("sk-1234567890"))
}


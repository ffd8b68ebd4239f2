package cmd

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/llmgit/internal/aiconnectors"
	"github.com/llmgit/internal/config"
	"github.com/llmgit/internal/git"
	"github.com/llmgit/internal/github"
	"github.com/llmgit/internal/llm"
	"github.com/llmgit/internal/logging"
)

// Repository is the read-only repository metadata commands need
type Repository interface {
	Root() string
	CurrentBranch() (string, error)
	HeadMessage() (string, error)
	RemoteURL(name string) (string, error)
	DefaultBranch(remote string) (string, error)
}

// PullRequestCreator opens pull requests
type PullRequestCreator interface {
	CreatePullRequest(ctx context.Context, pr github.PullRequest) (string, error)
}

// Env holds the process environment and the collaborators commands work
// with. Tests swap them for fakes.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Getwd           func() (string, error)
	Executable      func() (string, error)
	StdinIsTerminal func() bool

	NewRunner       func(dir string) git.Runner
	OpenRepo        func(dir string) (Repository, error)
	NewModel        func(ctx context.Context, s config.ModelSettings, stream io.Writer) (llm.Completer, string, error)
	NewPullRequests func(token, baseURL string) (PullRequestCreator, error)
	EditFile        func(ctx context.Context, r git.Runner, path string) error
}

// NewEnv returns the environment of a real invocation
func NewEnv() *Env {
	return &Env{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getwd:      os.Getwd,
		Executable: os.Executable,
		StdinIsTerminal: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		NewRunner: func(dir string) git.Runner { return git.NewExecRunner(dir) },
		OpenRepo: func(dir string) (Repository, error) {
			return git.Open(dir)
		},
		NewModel: newConnector,
		NewPullRequests: func(token, baseURL string) (PullRequestCreator, error) {
			return github.NewClient(token, baseURL)
		},
		EditFile: func(ctx context.Context, r git.Runner, path string) error {
			editor, err := git.Editor(ctx, r)
			if err != nil {
				return err
			}
			return git.EditFile(ctx, editor, path)
		},
	}
}

func newConnector(ctx context.Context, s config.ModelSettings, stream io.Writer) (llm.Completer, string, error) {
	provider, err := aiconnectors.ParseProvider(s.Provider)
	if err != nil {
		return nil, "", err
	}
	conn, err := aiconnectors.NewConnector(ctx, aiconnectors.ConnectorOptions{
		Provider: provider,
		APIKey:   s.APIKey,
		BaseURL:  s.BaseURL,
		ModelConfig: aiconnectors.ModelConfig{
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			Model:       s.Name,
		},
		Stream: stream,
	})
	if err != nil {
		return nil, "", err
	}
	return conn, conn.GetModel(), nil
}

// editText lets the user edit text in the git editor and returns the result
func (e *Env) editText(ctx context.Context, r git.Runner, text string) (string, error) {
	var edited string
	err := git.WithTempFile("llm-git-*.md", text, func(path string) error {
		if err := e.EditFile(ctx, r, path); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		edited = string(data)
		return nil
	})
	return edited, err
}

// GlobalFlags are accepted before any command
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Load extra configuration from `FILE` (repeatable, later files win)",
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "Model name, overrides model.name",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Model provider (openai, gemini, claude, cohere, ollama), overrides model.provider",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load environment variables such as API keys from `FILE`",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: []string{"LLM_GIT_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-dir",
			Usage:   "Write a transcript of every model exchange to `DIR`",
			EnvVars: []string{"LLM_GIT_LOG_DIR"},
		},
	}
}

// NewApp builds the command line application
func NewApp(env *Env) *cli.App {
	return &cli.App{
		Name:      "llm-git",
		Usage:     "Git helpers backed by a language model",
		Reader:    env.Stdin,
		Writer:    env.Stdout,
		ErrWriter: env.Stderr,
		Flags:     GlobalFlags(),
		Before: func(c *cli.Context) error {
			if f := c.String("env-file"); f != "" {
				if err := LoadEnvFile(f); err != nil {
					return err
				}
			}
			id, err := logging.Setup(logging.Options{
				Level:   c.String("log-level"),
				Verbose: c.Bool("verbose"),
				Writer:  env.Stderr,
			})
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{"invocation_id": id}
			return nil
		},
		Commands: []*cli.Command{
			GitCommand(env),
			GitHubCommand(env),
			ConfigCommand(env),
		},
	}
}

func invocationID(c *cli.Context) string {
	id, _ := c.App.Metadata["invocation_id"].(string)
	return id
}

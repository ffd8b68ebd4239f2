package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/llmgit/internal/config"
	"github.com/llmgit/internal/git"
	"github.com/llmgit/internal/llm"
	"github.com/llmgit/internal/logging"
	"github.com/llmgit/internal/prompts"
	"github.com/llmgit/internal/redact"
	"github.com/llmgit/internal/retry"
	"github.com/llmgit/internal/terminal"
)

// session is everything one command invocation works with. The
// configuration is loaded once and only read afterwards.
type session struct {
	env     *Env
	ctx     *cli.Context
	cfg     *config.Config
	prompts *prompts.Registry
	repo    Repository // nil outside a repository
	root    string
	runner  git.Runner
	vars    prompts.Vars
	out     *terminal.Printer
	extend  string

	model      llm.Completer
	stream     *echoWriter
	transcript *logging.Transcript
	detector   redact.Detector
}

func newSession(c *cli.Context, env *Env, needRepo bool) (*session, error) {
	wd, err := env.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	s := &session{env: env, ctx: c, root: wd}
	if repo, err := env.OpenRepo(wd); err == nil {
		s.repo = repo
		s.root = repo.Root()
	} else if needRepo {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}

	opts := config.LoadOptions{
		UserDir: config.UserConfigDir(),
		Files:   c.StringSlice("config"),
		UseEnv:  true,
	}
	if s.repo != nil {
		opts.RepoRoot = s.root
	}
	cfg, err := config.LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if m := c.String("model"); m != "" {
		cfg.Settings.Model.Name = m
	}
	if p := c.String("provider"); p != "" {
		cfg.Settings.Model.Provider = p
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	s.cfg = cfg
	s.prompts = prompts.NewRegistry(cfg.Prompts())

	branch := ""
	if s.repo != nil {
		if b, err := s.repo.CurrentBranch(); err == nil {
			branch = b
		} else {
			log.Debug().Err(err).Msg("Could not determine the current branch")
		}
	}
	s.vars = prompts.DefaultVars(s.root, branch)
	s.runner = env.NewRunner(s.root)
	s.out = terminal.NewPrinter(env.Stdout, cfg.Settings.Terminal)
	s.extend = c.String("extend-prompt")

	log.Debug().
		Str("root", s.root).
		Str("branch", branch).
		Strs("sources", cfg.Sources).
		Msg("Session ready")
	return s, nil
}

func (s *session) close() {
	if s == nil {
		return
	}
	if err := s.transcript.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close transcript")
	}
}

// systemPrompt resolves name with vars, extended by the given additions and
// the --extend-prompt text
func (s *session) systemPrompt(name string, vars prompts.Vars, additions ...string) (string, error) {
	return s.prompts.Extend(name, prompts.JoinAdditions(append(additions, s.extend)...), vars)
}

// diff runs git diff with the configured context size and exclusions
func (s *session) diff(ctx context.Context, opts git.DiffOptions) (string, error) {
	opts.Unified = s.cfg.Settings.Git.Unified
	opts.Exclude = s.cfg.Settings.Git.ExcludeFiles
	return s.runner.Output(ctx, git.DiffArgs(opts)...)
}

// redact strips secrets from text bound for the model when enabled
func (s *session) redact(text string) (string, error) {
	if !s.cfg.Settings.Git.RedactSecrets {
		return text, nil
	}
	if s.detector == nil {
		d, err := redact.NewDefault()
		if err != nil {
			return "", err
		}
		s.detector = d
	}
	out, _ := redact.Redact(s.detector, text)
	return out, nil
}

// completer returns the model client, built on first use
func (s *session) completer(ctx context.Context) (llm.Completer, error) {
	if s.model != nil {
		return s.model, nil
	}

	settings := s.cfg.Settings.Model
	s.stream = &echoWriter{}
	var stream io.Writer
	if settings.Stream {
		stream = s.stream
	}
	model, name, err := s.env.NewModel(ctx, settings, stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	opts := []llm.Option{
		llm.WithTimeout(settings.Timeout),
		llm.WithRateLimit(settings.RequestsPerMinute),
		llm.WithShowPrompts(os.Getenv("LLM_GIT_SHOW_PROMPTS") == "1"),
		llm.WithAbort(os.Getenv("LLM_GIT_ABORT") == "request"),
	}
	if dir := s.ctx.String("log-dir"); dir != "" {
		t, err := logging.StartTranscript(dir, s.ctx.Command.FullName(), invocationID(s.ctx))
		if err != nil {
			return nil, err
		}
		s.transcript = t
		opts = append(opts, llm.WithRecorder(t))
	}

	s.model = llm.NewResilientClient(model, name, retry.ModelPolicy(settings.Retries), opts...)
	return s.model, nil
}

// ask sends input to the model under the given system prompt. With echo the
// answer is shown on stdout, streamed when the model supports it.
func (s *session) ask(ctx context.Context, system, input string, echo bool) (string, error) {
	model, err := s.completer(ctx)
	if err != nil {
		return "", err
	}
	if input, err = s.redact(input); err != nil {
		return "", err
	}

	s.stream.start(echo, s.env.Stdout)
	out, err := model.Complete(ctx, llm.Request{System: system, Prompt: input})
	streamed := s.stream.stop()
	if err != nil {
		return "", err
	}
	if echo && !streamed {
		s.out.Text(out)
	}
	return out, nil
}

// echoWriter forwards streamed chunks to stdout while a request wants them
type echoWriter struct {
	w       io.Writer
	written bool
}

func (e *echoWriter) start(echo bool, w io.Writer) {
	e.w, e.written = nil, false
	if echo {
		e.w = w
	}
}

func (e *echoWriter) stop() bool {
	written := e.written
	e.w, e.written = nil, false
	return written
}

func (e *echoWriter) Write(p []byte) (int, error) {
	if e.w == nil {
		return len(p), nil
	}
	e.written = e.written || len(p) > 0
	return e.w.Write(p)
}

// firstLine splits text into its first non-empty line and the remainder
func firstLine(text string) (string, string) {
	head, rest, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(head), strings.TrimSpace(rest)
}

package cmd

import (
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/llmgit/internal/git"
	"github.com/llmgit/internal/rebase"
)

func rebaseCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:      "rebase",
		Usage:     "Start an interactive rebase with a plan improved by the model",
		ArgsUsage: "[UPSTREAM]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Abort the rebase when no valid improved plan is produced"},
			extendPromptFlag(),
		},
		Action: func(c *cli.Context) error { return runRebase(c, env) },
	}
}

func improveRebasePlanCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:      "improve-rebase-plan",
		Usage:     "Rewrite a rebase todo file (used as git's sequence editor)",
		ArgsUsage: "TODO_FILE",
		Hidden:    true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Fail instead of keeping the original plan"},
			extendPromptFlag(),
		},
		Action: func(c *cli.Context) error { return runImproveRebasePlan(c, env) },
	}
}

func runRebase(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	upstream := c.Args().First()
	if upstream == "" {
		if upstream, err = s.repo.DefaultBranch("origin"); err != nil {
			return err
		}
	}

	exe, err := env.Executable()
	if err != nil {
		return fmt.Errorf("locating llm-git executable: %w", err)
	}
	editor := sequenceEditor(exe, c)
	log.Debug().Str("sequence_editor", editor).Str("upstream", upstream).Msg("Starting interactive rebase")

	return s.runner.Interactive(ctx, []string{"GIT_SEQUENCE_EDITOR=" + editor}, "rebase", "-i", upstream)
}

// sequenceEditor builds the command git runs on the todo file, carrying over
// the flags that shape the configuration and the prompt
func sequenceEditor(exe string, c *cli.Context) string {
	args := []string{shellescape.Quote(exe)}
	for _, f := range c.StringSlice("config") {
		args = append(args, "--config", shellescape.Quote(f))
	}
	for _, name := range []string{"model", "provider", "log-dir"} {
		if v := c.String(name); v != "" {
			args = append(args, "--"+name, shellescape.Quote(v))
		}
	}
	args = append(args, "git", "improve-rebase-plan")
	if c.Bool("strict") {
		args = append(args, "--strict")
	}
	if e := c.String("extend-prompt"); e != "" {
		args = append(args, "--extend-prompt", shellescape.Quote(e))
	}
	return strings.Join(args, " ")
}

func runImproveRebasePlan(c *cli.Context, env *Env) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: TODO_FILE")
	}
	path := c.Args().First()
	ctx := c.Context

	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	settings := s.cfg.Settings.Rebase
	strict := settings.Strict || c.Bool("strict")

	improveErr := s.improvePlan(c, path, settings.MaxAttempts)
	if improveErr != nil {
		if strict {
			return improveErr
		}
		log.Warn().Err(improveErr).Msg("Keeping the original rebase plan")
	}

	if settings.Edit {
		return env.EditFile(ctx, s.runner, path)
	}
	return nil
}

func (s *session) improvePlan(c *cli.Context, path string, attempts int) error {
	ctx := c.Context
	plan, err := rebase.ReadFile(path)
	if err != nil {
		return err
	}
	commits := plan.Commits()
	if len(commits) == 0 {
		return nil
	}

	history, err := s.runner.Output(ctx, git.HistoryArgs(commits)...)
	if err != nil {
		return err
	}
	if history, err = s.redact(history); err != nil {
		return err
	}

	model, err := s.completer(ctx)
	if err != nil {
		return err
	}
	improver := &rebase.Improver{
		Prompts:     s.prompts,
		Model:       model,
		Vars:        s.vars,
		Extend:      s.extend,
		MaxAttempts: attempts,

		AllowNewCommands: s.cfg.Settings.Rebase.AllowNewCommands,
	}
	_, err = improver.ImproveFile(ctx, path, history)
	return err
}

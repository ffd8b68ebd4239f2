package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/llmgit/internal/diff"
	"github.com/llmgit/internal/git"
	"github.com/llmgit/internal/llm"
	"github.com/llmgit/internal/prompts"
)

// patchAttempts bounds how often a patch is requested again after git apply rejected it
const patchAttempts = 3

func extendPromptFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "extend-prompt",
		Aliases: []string{"e"},
		Usage:   "Additional instructions appended to the prompt",
	}
}

func noEditFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "no-edit",
		Usage: "Use the generated text without opening an editor",
	}
}

// GitCommand returns the git command group
func GitCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "git",
		Usage: "Git helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "commit",
				Usage: "Generate a commit message for the staged changes and commit",
				Flags: []cli.Flag{
					noEditFlag(),
					&cli.BoolFlag{Name: "amend", Aliases: []string{"am"}, Usage: "Amend the previous commit"},
					&cli.BoolFlag{Name: "add-metadata", Usage: "Add the issue id found in the branch name (default from commit.add_metadata)"},
					&cli.BoolFlag{Name: "include-prompt", Usage: "Include the prompt, commented out, in the commit message file"},
					extendPromptFlag(),
				},
				Action: func(c *cli.Context) error { return runCommit(c, env) },
			},
			{
				Name:      "apply",
				Usage:     "Generate and apply changes following INSTRUCTIONS",
				ArgsUsage: "INSTRUCTIONS",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "cached", Usage: "Apply the patch to the index"},
					extendPromptFlag(),
				},
				Action: func(c *cli.Context) error { return runApply(c, env) },
			},
			{
				Name:   "add",
				Usage:  "Generate and stage minimal fixes for the working tree changes",
				Flags:  []cli.Flag{extendPromptFlag()},
				Action: func(c *cli.Context) error { return runAdd(c, env) },
			},
			{
				Name:      "create-branch",
				Usage:     "Suggest a branch name for commits and create it",
				ArgsUsage: "[COMMIT_SPEC]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "preview", Usage: "Only print the branch name"},
					extendPromptFlag(),
				},
				Action: func(c *cli.Context) error { return runCreateBranch(c, env) },
			},
			{
				Name:      "tag",
				Usage:     "Create an annotated tag with release notes for the commits since the last tag",
				ArgsUsage: "[REV]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "preview", Usage: "Only print the tag name and message"},
					extendPromptFlag(),
				},
				Action: func(c *cli.Context) error { return runTag(c, env) },
			},
			{
				Name:   "describe-staged",
				Usage:  "Describe the staged changes and suggest how to split them",
				Flags:  []cli.Flag{extendPromptFlag()},
				Action: func(c *cli.Context) error { return runDescribeStaged(c, env) },
			},
			{
				Name:   "dump-prompts",
				Usage:  "Print every prompt with its references expanded",
				Action: func(c *cli.Context) error { return runDumpPrompts(c, env) },
			},
			rebaseCommand(env),
			improveRebasePlanCommand(env),
		},
	}
}

func runCommit(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	amend := c.Bool("amend")
	noEdit := c.Bool("no-edit")

	opts := git.DiffOptions{Staged: true}
	if amend {
		opts.Rev = "HEAD^"
	}
	changes, err := s.diff(ctx, opts)
	if err != nil {
		return err
	}
	if strings.TrimSpace(changes) == "" {
		return errors.New("nothing to commit: no staged changes")
	}

	name := "commit_message"
	vars := s.vars
	if amend {
		prev, err := s.repo.HeadMessage()
		if err != nil {
			return err
		}
		name = "commit_message_amend"
		vars = vars.With(prompts.VarPreviousMessage, strings.TrimSpace(prev))
	}

	addMetadata := s.cfg.Settings.Commit.AddMetadata
	if c.IsSet("add-metadata") {
		addMetadata = c.Bool("add-metadata")
	}
	var metadata string
	if addMetadata {
		if metadata, err = s.prompts.Resolve("add_metadata", vars); err != nil {
			return err
		}
	}

	system, err := s.systemPrompt(name, vars, metadata)
	if err != nil {
		return err
	}

	msg, err := s.ask(ctx, system, changes, true)
	if err != nil {
		return err
	}

	includePrompt := s.cfg.Settings.Commit.IncludePrompt || c.Bool("include-prompt")
	if includePrompt && !noEdit {
		msg += prompts.BuildPromptSection(system)
	}

	return git.WithTempFile("llm-git-commit-*.txt", msg, func(path string) error {
		return s.runner.Interactive(ctx, nil, git.CommitArgs(amend, noEdit, path)...)
	})
}

func runApply(c *cli.Context, env *Env) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: INSTRUCTIONS")
	}
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	var input string
	if env.StdinIsTerminal() {
		if input, err = s.diff(ctx, git.DiffOptions{}); err != nil {
			return err
		}
	} else {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		input = string(data)
	}

	system, err := s.systemPrompt("apply_patch_custom_instructions",
		s.vars.With(prompts.VarInstructions, strings.Join(c.Args().Slice(), " ")))
	if err != nil {
		return err
	}
	return s.applyPatch(c, system, input, c.Bool("cached"))
}

func runAdd(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	changes, err := s.diff(ctx, git.DiffOptions{})
	if err != nil {
		return err
	}
	if strings.TrimSpace(changes) == "" {
		return errors.New("no unstaged changes to fix")
	}

	system, err := s.systemPrompt("apply_patch_minimal", s.vars)
	if err != nil {
		return err
	}
	return s.applyPatch(c, system, changes, true)
}

// applyPatch asks for a patch and applies it. Replies without a usable patch
// and patches git rejects are reported back to the model.
func (s *session) applyPatch(c *cli.Context, system, changes string, cached bool) error {
	ctx := c.Context
	model, err := s.completer(ctx)
	if err != nil {
		return err
	}
	if changes, err = s.redact(changes); err != nil {
		return err
	}

	parser := diff.NewParser()
	var applied []*diff.FileDiff
	req := llm.Request{System: system, Prompt: prompts.BuildDiffInput(changes)}
	_, err = llm.CompleteWithFeedback(ctx, model, req, patchAttempts, func(out string) error {
		patch, ok := llm.ExtractCodeBlock(out)
		if !ok {
			return errors.New("no patch found in the output")
		}
		files, err := parser.Parse(patch)
		if err != nil {
			return err
		}
		err = git.WithTempFile("llm-git-*.patch", diff.Normalize(patch), func(path string) error {
			_, err := s.runner.Output(ctx, git.ApplyArgs(cached, path)...)
			return err
		})
		if err != nil {
			return err
		}
		applied = files
		return nil
	})
	if err != nil {
		return err
	}

	s.out.Heading("Applied patch to:")
	for _, p := range diff.Paths(applied) {
		s.out.Text("  " + p)
	}
	return nil
}

func runCreateBranch(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	spec := c.Args().First()
	if spec == "" {
		def, err := s.repo.DefaultBranch("origin")
		if err != nil {
			return err
		}
		base, err := s.runner.Output(ctx, git.MergeBaseArgs(def, "HEAD")...)
		if err != nil {
			return err
		}
		spec = base + "..HEAD"
	}

	history, err := s.runner.Output(ctx, git.LogArgs(spec)...)
	if err != nil {
		return err
	}
	if history == "" {
		return fmt.Errorf("no commits in %s", spec)
	}

	system, err := s.systemPrompt("branch_name", s.vars)
	if err != nil {
		return err
	}
	out, err := s.ask(ctx, system, history, false)
	if err != nil {
		return err
	}

	name := git.BranchSlug(out)
	if name == "" {
		return fmt.Errorf("model did not return a usable branch name: %q", out)
	}
	if c.Bool("preview") {
		s.out.Text(name)
		return nil
	}
	if _, err := s.runner.Output(ctx, git.CheckoutBranchArgs(name)...); err != nil {
		return err
	}
	s.out.Text(fmt.Sprintf("Switched to a new branch '%s'", name))
	return nil
}

func runTag(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	rev := c.Args().First()
	if rev == "" {
		rev = "HEAD"
	}

	logArgs := []string{"log", "--format=fuller", rev}
	if last, err := s.runner.Output(ctx, git.LastTagArgs(rev)...); err == nil && last != "" {
		logArgs[2] = last + ".." + rev
	} else {
		log.Debug().Err(err).Msg("No previous tag, describing the whole history")
	}
	commits, err := s.runner.Output(ctx, logArgs...)
	if err != nil {
		return err
	}
	if commits == "" {
		return fmt.Errorf("no new commits to tag in %s", logArgs[2])
	}

	tags, err := s.runner.Output(ctx, git.TagListArgs()...)
	if err != nil {
		return err
	}
	if tags == "" {
		tags = "(no tags yet)"
	}

	system, err := s.systemPrompt("tag_message", s.vars.With(prompts.VarCommitDetails, commits))
	if err != nil {
		return err
	}
	out, err := s.ask(ctx, system, tags, false)
	if err != nil {
		return err
	}

	name, notes := firstLine(out)
	name = strings.Trim(name, "`\"' ")
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("model did not return a usable tag name: %q", name)
	}
	if notes == "" {
		notes = name
	}
	if c.Bool("preview") {
		s.out.Text(name + "\n\n" + notes)
		return nil
	}

	var target string
	if c.Args().Present() {
		target = rev
	}
	err = git.WithTempFile("llm-git-tag-*.txt", notes+"\n", func(path string) error {
		_, err := s.runner.Output(ctx, git.TagArgs(name, path, target)...)
		return err
	})
	if err != nil {
		return err
	}
	s.out.Text("Created tag " + name)
	return nil
}

func runDescribeStaged(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	changes, err := s.diff(ctx, git.DiffOptions{Staged: true})
	if err != nil {
		return err
	}
	if strings.TrimSpace(changes) == "" {
		return errors.New("no staged changes")
	}

	system, err := s.systemPrompt("describe_staged", s.vars)
	if err != nil {
		return err
	}

	s.out.Heading("Staged changes:")
	s.out.Diff(changes)
	s.out.Note("\nAnalyzing changes...\n")

	_, err = s.ask(ctx, system, changes, true)
	return err
}

func runDumpPrompts(c *cli.Context, env *Env) error {
	s, err := newSession(c, env, false)
	if err != nil {
		return err
	}
	defer s.close()

	s.out.Heading("Available prompts:")
	var errs []error
	for _, name := range s.prompts.Names() {
		s.out.Text("\n")
		s.out.Name(name)
		text, err := s.prompts.Expand(name)
		if err != nil {
			s.out.Note("error: " + err.Error())
			errs = append(errs, err)
			continue
		}
		s.out.Text(text)
	}
	return errors.Join(errs...)
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/llmgit/internal/git"
	"github.com/llmgit/internal/github"
)

// GitHubCommand returns the github command group
func GitHubCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "github",
		Usage: "GitHub helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "create-pr",
				Usage: "Write a pull request description for the current branch and open the pull request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "upstream",
						Aliases: []string{"u"},
						Usage:   "Branch the pull request targets (default: the origin default branch)",
					},
					&cli.BoolFlag{Name: "draft", Usage: "Open the pull request as a draft (default from github.draft)"},
					noEditFlag(),
					extendPromptFlag(),
				},
				Action: func(c *cli.Context) error { return runCreatePR(c, env) },
			},
		},
	}
}

func runCreatePR(c *cli.Context, env *Env) error {
	ctx := c.Context
	s, err := newSession(c, env, true)
	if err != nil {
		return err
	}
	defer s.close()

	head, err := s.repo.CurrentBranch()
	if err != nil {
		return err
	}
	if head == "" {
		return errors.New("HEAD is detached, check out the branch to propose first")
	}

	upstream := c.String("upstream")
	if upstream == "" {
		if upstream, err = s.repo.DefaultBranch("origin"); err != nil {
			return err
		}
	}
	base, err := s.runner.Output(ctx, git.MergeBaseArgs("HEAD", upstream)...)
	if err != nil {
		return err
	}
	history, err := s.runner.Output(ctx, "log", base+"..HEAD")
	if err != nil {
		return err
	}
	if history == "" {
		return fmt.Errorf("no commits between %s and HEAD", upstream)
	}

	remote, err := s.repo.RemoteURL("origin")
	if err != nil {
		return err
	}
	owner, repo, err := github.ParseRemote(remote)
	if err != nil {
		return err
	}

	system, err := s.systemPrompt("pr_description", s.vars)
	if err != nil {
		return err
	}
	noEdit := c.Bool("no-edit")
	desc, err := s.ask(ctx, system, history, noEdit)
	if err != nil {
		return err
	}
	if !noEdit {
		if desc, err = env.editText(ctx, s.runner, desc); err != nil {
			return err
		}
	}

	title, body := github.SplitDescription(desc)
	if title == "" {
		return errors.New("empty pull request title, aborting")
	}

	token := githubToken(s.cfg.Settings.GitHub.Token)
	if token == "" {
		return errors.New("no GitHub token: set github.token, GITHUB_TOKEN or GH_TOKEN")
	}
	client, err := env.NewPullRequests(token, s.cfg.Settings.GitHub.APIURL)
	if err != nil {
		return err
	}

	draft := s.cfg.Settings.GitHub.Draft
	if c.IsSet("draft") {
		draft = c.Bool("draft")
	}
	url, err := client.CreatePullRequest(ctx, github.PullRequest{
		Owner: owner,
		Repo:  repo,
		Title: title,
		Body:  body,
		Head:  head,
		Base:  strings.TrimPrefix(upstream, "origin/"),
		Draft: draft,
	})
	if err != nil {
		return err
	}
	s.out.Text(url)
	return nil
}

func githubToken(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/llmgit/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a configuration override file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: the user configuration file)",
					},
					&cli.BoolFlag{
						Name:  "repo",
						Usage: "Create the repository configuration file instead",
					},
				},
				Action: func(c *cli.Context) error { return runConfigInit(c, env) },
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "defaults", Usage: "Print the bundled defaults instead"},
				},
				Action: func(c *cli.Context) error { return runConfigShow(c, env) },
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration and the prompt templates",
				Action: func(c *cli.Context) error { return runConfigValidate(c, env) },
			},
			{
				Name:   "path",
				Usage:  "Print where configuration is read from",
				Action: func(c *cli.Context) error { return runConfigPath(c, env) },
			},
		},
	}
}

func runConfigInit(c *cli.Context, env *Env) error {
	outputPath := c.String("output")
	if outputPath == "" {
		if c.Bool("repo") {
			wd, err := env.Getwd()
			if err != nil {
				return err
			}
			repo, err := env.OpenRepo(wd)
			if err != nil {
				return fmt.Errorf("not inside a git repository: %w", err)
			}
			outputPath = config.RepoConfigPath(repo.Root())
		} else {
			outputPath = config.UserConfigPath(config.UserConfigDir())
		}
	}

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(env.Stdout, "Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigShow(c *cli.Context, env *Env) error {
	if c.Bool("defaults") {
		_, err := env.Stdout.Write(config.DefaultYAML())
		return err
	}

	s, err := newSession(c, env, false)
	if err != nil {
		return err
	}
	defer s.close()

	out, err := yaml.Marshal(s.cfg.Tree)
	if err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}
	_, err = env.Stdout.Write(out)
	return err
}

func runConfigValidate(c *cli.Context, env *Env) error {
	s, err := newSession(c, env, false)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.prompts.Check(); err != nil {
		return fmt.Errorf("invalid prompts: %w", err)
	}

	for _, name := range s.cfg.Cleared {
		fmt.Fprintf(env.Stdout, "warning: section %q is null in an override and drops all of its defaults\n", name)
	}

	result := CheckCredentials(s.cfg.Settings)
	PrintCredentialCheck(env.Stdout, result)
	if len(result.Missing) > 0 {
		return fmt.Errorf("missing credentials: %v", result.Missing)
	}

	fmt.Fprintln(env.Stdout, "Configuration is valid")
	return nil
}

func runConfigPath(c *cli.Context, env *Env) error {
	s, err := newSession(c, env, false)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Fprintf(env.Stdout, "user: %s\n", config.UserConfigPath(config.UserConfigDir()))
	if s.repo != nil {
		fmt.Fprintf(env.Stdout, "repo: %s\n", config.RepoConfigPath(s.root))
	}
	for _, src := range s.cfg.Sources {
		fmt.Fprintf(env.Stdout, "loaded: %s\n", src)
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/llmgit/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	// -v is taken by --verbose
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	app := cmd.NewApp(cmd.NewEnv())
	app.Version = version

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

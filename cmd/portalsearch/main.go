package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/portalsearch/internal/config"
	"github.com/kailas-cloud/portalsearch/internal/version"
)

func main() {
	env := config.GetEnv()
	app := &cli.Command{
		Name:    "portalsearch",
		Usage:   "Aggregate and rank map portal search results",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Configuration file path",
				Value:   config.Path(env),
				Sources: cli.EnvVars("PORTALSEARCH_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Environment name selecting the log format (local, dev, docker, prod)",
				Value: env,
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			queryCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Println(version.String())
			return nil
		},
	}
}

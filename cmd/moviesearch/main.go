package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/urfave/cli.v1"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("moviesearch failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "moviesearch"
	app.HelpName = "moviesearch"
	app.Usage = "keyword search over a movie dataset"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to a YAML config file",
			EnvVar: "MS_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		buildCommand,
		searchCommand,
		serveCommand,
		loadtestCommand,
	}
	app.CommandNotFound = func(c *cli.Context, command string) {
		fmt.Fprintf(c.App.Writer, "Unknown command %q.\n\n", command)
		cli.ShowAppHelp(c)
	}
	return app
}

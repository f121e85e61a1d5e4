package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"go-erp-currency/app"
	"go-erp-currency/config"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "currency")
	}

	flag.Parse()

	logger := app.NewLogger(os.Stderr)
	env := &env{
		out: os.Stdout,
		load: func() (*app.App, error) {
			cfg, err := config.Load(logger)
			if err != nil {
				return nil, err
			}
			return app.New(cfg, logger)
		},
	}
	os.Exit(int(commander.Execute(context.Background(), env)))
}

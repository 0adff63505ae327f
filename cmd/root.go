package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "lector",
		Usage: "An RSS/Atom reader backend",
		Description: `Lector periodically fetches the RSS and Atom feeds users follow,
		reconciles their entries into stored posts and tracks per-user
		read state. Feeds that keep failing are retried with backoff and
		eventually disabled, with a notification to the owner.

		Flags can generally be set via environment variables, e.g.:

		--database => LECTOR_DATABASE=lector.db
		--port => LECTOR_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			refreshCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

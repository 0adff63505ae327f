package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"lector/db"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing posts that are old.

		Remove posts that have not been updated within the retention
		window. This is to keep the database size down.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "lector.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"LECTOR_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "days",
				Value:   90,
				Usage:   "Retention window in days",
				EnvVars: []string{"LECTOR_TIDY_DAYS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			fmt.Println("Database configured: ", database)
			return db.Tidy(database, time.Duration(ctx.Int("days"))*24*time.Hour)
		},
	}
}

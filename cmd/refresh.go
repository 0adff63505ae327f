package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"lector/db"
	"lector/feed"
	"lector/fetcher"
	"lector/notify"
)

func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Force refresh a single feed",
		Description: `Runs the refresh pipeline once for one feed, bypassing the
due-feed selection. If auto refresh was disabled for the feed it is
re-enabled first, like a force update from the owner.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "lector.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"LECTOR_DATABASE"},
			},
			&cli.Int64Flag{
				Name:     "id",
				Usage:    "Feed id to refresh",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Value: 3,
				Usage: "Retry budget for this refresh",
			},
		},
		Action: func(ctx *cli.Context) error {
			store, err := db.Open(ctx.String("database"))
			if err != nil {
				return err
			}
			defer store.Close()

			fetch := fetcher.New(20 * time.Second)
			reconciler := feed.NewReconciler(store.Feeds, store.Posts, time.Now)
			refresher := feed.NewRefresher(
				store.Feeds,
				fetch,
				reconciler,
				notify.LogSink{},
				ctx.Int("max-retries"),
				feed.LinearBackoff(time.Second, 30*time.Second),
			)

			result := refresher.Force(ctx.Context, ctx.Int64("id"))
			fmt.Printf("Feed %d: %s, %d new posts\n", result.FeedID, result.Status, result.Created)
			return nil
		},
	}
}

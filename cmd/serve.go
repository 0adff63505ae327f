package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"lector/config"
	"lector/db"
	"lector/feed"
	"lector/fetcher"
	"lector/notify"
	"lector/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the refresh scheduler and trigger server",
		Description: `Starts the lector refresh pipeline and the HTTP trigger server.

Every interval the scheduler selects feeds with auto refresh enabled and
at least one follower and refreshes them concurrently. The HTTP server
exposes health, metrics and a per-feed force-update endpoint.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"LECTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "lector.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"LECTOR_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port for the HTTP trigger server",
				EnvVars: []string{"LECTOR_PORT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg := config.DefaultConfig()
			if path := ctx.String("config"); path != "" {
				loaded, err := config.LoadConfig(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if ctx.IsSet("database") || cfg.Database == "" {
				cfg.Database = ctx.String("database")
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}

			store, err := db.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			var sink notify.Sink = notify.LogSink{}
			if cfg.SMTP.Addr != "" {
				sink = notify.NewSMTPSink(cfg.SMTP.Addr, cfg.SMTP.From, store.Users)
			}

			fetch := fetcher.New(cfg.Refresh.FetchTimeout())
			reconciler := feed.NewReconciler(store.Feeds, store.Posts, time.Now)
			refresher := feed.NewRefresher(
				store.Feeds,
				fetch,
				reconciler,
				sink,
				cfg.Refresh.MaxRetries,
				feed.LinearBackoff(cfg.Refresh.Backoff(), cfg.Refresh.BackoffMax()),
			)
			scheduler := feed.NewScheduler(store.Feeds, refresher, cfg.Refresh.Interval())

			app := server.Server(&server.ServerConfig{Refresher: refresher})

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()

			// Graceful shutdown
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			go func() {
				<-interrupt
				log.Info("Gracefully shutting down...")
				cancel()
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Errorf("Error shutting down server: %v", err)
				}
			}()

			go func() {
				log.WithFields(log.Fields{
					"interval": cfg.Refresh.Interval(),
				}).Info("Starting scheduler...")
				scheduler.Run(runCtx)
			}()

			log.WithFields(log.Fields{
				"port": cfg.Server.Port,
			}).Info("Starting server...")
			return app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
		},
	}
}

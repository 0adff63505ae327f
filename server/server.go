// Package server exposes the refresh trigger surface over HTTP: health,
// metrics, and a force-update endpoint per feed. This is not a CRUD API;
// feed and account management live elsewhere.
package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"lector/feed"
)

// ServerConfig wires the pipeline into the HTTP surface
type ServerConfig struct {
	// Refresher runs a force update for one feed
	Refresher *feed.Refresher
}

// Server returns a fiber.App instance serving the lector trigger surface
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		stop := time.Now()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Force update: enters the pipeline directly at fetching, bypassing
	// the due-feed filter, and re-enables auto refresh if it was off.
	app.Post("/feeds/:id/refresh", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid feed id"})
		}

		result := config.Refresher.Force(c.Context(), id)
		switch result.Status {
		case feed.StatusMissing:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "feed not found"})
		case feed.StatusAborted:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "refresh aborted"})
		default:
			return c.JSON(fiber.Map{
				"feed":    result.FeedID,
				"status":  result.Status.String(),
				"created": result.Created,
			})
		}
	})

	return app
}

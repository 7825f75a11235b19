package api

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/steer-rc/controller/pkg/input"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/status"
)

// NewServer creates the Fiber app shared by both binaries, with request
// logging, panic recovery and JSON errors.
func NewServer(appName, service string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": service,
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	return app
}

// ErrorHandler renders every error as {"error": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// RequireUpgrade rejects plain HTTP requests under the websocket prefix.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// RegisterControlStream serves /ws/control, the remote input device.
func RegisterControlStream(app *fiber.App, device *input.RemoteDevice, logger customlog.Logger) {
	app.Use("/ws/control", RequireUpgrade)
	app.Get("/ws/control", websocket.New(func(conn *websocket.Conn) {
		ControlWebSocketHandler(conn, logger, device)
	}))
}

// RegisterStatusStream serves /ws/status.
func RegisterStatusStream(app *fiber.App, source func() interface{}, feed *status.Feed, interval time.Duration, logger customlog.Logger) {
	app.Use("/ws/status", RequireUpgrade)
	app.Get("/ws/status", websocket.New(func(conn *websocket.Conn) {
		StatusWebSocketHandler(conn, logger, source, feed, interval)
	}))
}

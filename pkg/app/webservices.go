package app

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/womat/debug"

	"irl/pkg/sender"
)

// runWebServer starts the applications web server and listens for web requests.
// It's designed to run in a separate go function to not block the main go function.
// See app.Run()
func (app *App) runWebServer() error {
	err := app.web.Listen(app.urlParsed.Host)
	if err != nil {
		debug.ErrorLog.Print(err)
	}
	return err
}

// HandleData returns the last received message.
// output example:
//
//	{"time":"2026-10-19T10:21:07+02:00","protocol":"nec","address":0,"command":26}
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		return ctx.JSON(app.lastResult())
	}
}

// HandleSend transmits the message of the posted Request.
func (app *App) HandleSend() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request send")

		var req Request
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		err := app.transmit(req)
		switch {
		case err == nil:
			return ctx.JSON(fiber.Map{"status": "sent"})
		case errors.Is(err, ErrNoSender):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, sender.ErrUnsupportedProtocol):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		default:
			debug.ErrorLog.Printf("can't send %v: %v", req.Protocol, err)
			return err
		}
	}
}

// HandleMetrics exports the counters of the app in the prometheus text format.
func (app *App) HandleMetrics() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(app.metrics.registry, promhttp.HandlerOpts{}))
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/command-tower/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Actions *handlers.ActionsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/stats", cfg.Tickets.GetStats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transition", cfg.Tickets.TransitionTicket)

	actions := app.Group("/actions")
	actions.Get("/", cfg.Actions.ListActions)
	actions.Post("/", cfg.Actions.CreateAction)
	actions.Post("/:id/workflow", cfg.Actions.AdvanceWorkflow)
}

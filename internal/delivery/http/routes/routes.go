package routes

import (
	"gig-match/internal/delivery/http/handler"
	"gig-match/internal/delivery/http/middleware"
	"gig-match/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health *handler.HealthHandler
	match  *handler.MatchHandler
	ws     *ws.Handler
	auth   *middleware.AuthMiddleware
}

func NewRegistry(health *handler.HealthHandler, match *handler.MatchHandler, wsHandler *ws.Handler, auth *middleware.AuthMiddleware) *Registry {
	return &Registry{health: health, match: match, ws: wsHandler, auth: auth}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerWS(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health == nil {
		return
	}
	r.health.RegisterRoutes(app)
}

func (r *Registry) registerWS(app *fiber.App) {
	if r.ws == nil || r.auth == nil {
		return
	}
	app.Get("/ws/notifications", r.auth.WebSocketMiddleware(), r.ws.HandleNotifications)
}

func (r *Registry) registerAPI(app *fiber.App) {
	if r.match == nil || r.auth == nil {
		return
	}
	v1 := app.Group("/api/v1", r.auth.Middleware())
	r.match.RegisterRoutes(v1)
}

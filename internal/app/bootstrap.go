package app

import (
	"context"
	"fmt"
	"strings"

	"gig-match/internal/config"
	"gig-match/internal/delivery/http/handler"
	"gig-match/internal/delivery/http/middleware"
	"gig-match/internal/delivery/http/routes"
	"gig-match/internal/logger"
	"gig-match/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// New builds the HTTP surface over an already wired container.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, logger.Component(c.Log, "http"))
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap wires the container, applies migrations and starts the
// background workers. The returned cleanup releases all of it.
func Bootstrap(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	applied, err := c.Migrate(ctx, "")
	if err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		c.Log.Info("[Bootstrap] schema migrated", zap.Int("applied", len(applied)))
	}

	c.Start(ctx)
	return New(c), c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, log *zap.Logger) {
	if app == nil {
		return
	}

	errMw := middleware.NewErrorMiddleware(log)
	accessMw := middleware.NewAccessLogMiddleware(log)
	app.Use(accessMw.Middleware())
	app.Use(errMw.Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil || c == nil {
		return
	}

	var db, redis handler.Pinger
	if c.DB != nil {
		db = c.DB
	}
	if c.Redis.Available() {
		redis = c.Redis
	}

	routes.NewRegistry(
		handler.NewHealthHandler(db, redis),
		handler.NewMatchHandler(c.Matching),
		ws.NewHandler(c.Hub, c.AuthorizeSubscriber, logger.Component(c.Log, "ws")),
		middleware.NewAuthMiddleware(c.JWT),
	).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}

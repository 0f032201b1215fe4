package handler

import (
	"context"
	"time"

	"gig-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// Pinger is any backing service the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type poolStats interface {
	Stats() (total, idle int32)
}

type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler takes nil for a dependency that is not in use.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{
		"database": probe(ctx, h.db),
		"cache":    probe(ctx, h.cache),
	}
	if ps, ok := h.db.(poolStats); ok {
		total, idle := ps.Stats()
		checks["db_conns"] = fiber.Map{"total": total, "idle": idle}
	}

	if checks["database"] == "down" {
		return response.Error(c, fiber.StatusServiceUnavailable, response.MessageServiceUnavailable, checks)
	}
	// Redis is optional; the engine degrades to local locks without it.
	return response.Success(c, fiber.StatusOK, response.MessageOK, checks)
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}

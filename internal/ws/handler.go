package ws

import (
	"context"
	"net/http"
	"strings"

	"gig-match/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authorizer decides whether userID may receive events addressed to
// subscriber.
type Authorizer func(ctx context.Context, subscriber string, userID uuid.UUID) error

type Handler struct {
	hub       *Hub
	authorize Authorizer
	log       *zap.Logger
}

// NewHandler with a nil authorize only lets users subscribe to their own id.
func NewHandler(hub *Hub, authorize Authorizer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{hub: hub, authorize: authorize, log: log}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleNotifications upgrades GET /ws/notifications?subscriber=<id>.
// Providers subscribe with their provider id, requesters with their user
// id. It must run behind the websocket auth middleware.
func (h *Handler) HandleNotifications(c fiber.Ctx) error {
	if h == nil || h.hub == nil {
		return fiber.ErrServiceUnavailable
	}
	userID, ok := c.Locals(middleware.CtxUserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return fiber.ErrUnauthorized
	}

	subscriber := strings.TrimSpace(c.Query("subscriber"))
	if subscriber == "" {
		subscriber = userID.String()
	}
	if err := h.allowed(c.Context(), subscriber, userID); err != nil {
		h.log.Info("[WS] subscription refused",
			zap.String("subscriber", subscriber),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return fiber.ErrForbidden
	}

	fiberHandler := adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("[WS] upgrade error", zap.Error(err))
			return
		}

		client := NewClient(h.hub, conn, subscriber)
		h.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	})

	return fiberHandler(c)
}

func (h *Handler) allowed(ctx context.Context, subscriber string, userID uuid.UUID) error {
	if subscriber == userID.String() {
		return nil
	}
	if h.authorize == nil {
		return fiber.ErrForbidden
	}
	return h.authorize(ctx, subscriber, userID)
}

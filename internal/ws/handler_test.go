package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gig-match/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

func refusalStatus(t *testing.T, authorize Authorizer, user uuid.UUID, query string) int {
	t.Helper()
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		if user != uuid.Nil {
			c.Locals(middleware.CtxUserIDKey, user)
		}
		return c.Next()
	})
	app.Get("/ws/notifications", NewHandler(NewHub(nil), authorize, nil).HandleNotifications)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/notifications"+query, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestHandleNotifications_RefusesBeforeUpgrade(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	deny := func(context.Context, string, uuid.UUID) error { return errors.New("not yours") }

	if got := refusalStatus(t, nil, uuid.Nil, ""); got != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", got)
	}
	if got := refusalStatus(t, nil, user, "?subscriber="+other.String()); got != http.StatusForbidden {
		t.Fatalf("foreign subscriber without authorizer: expected 403, got %d", got)
	}
	if got := refusalStatus(t, deny, user, "?subscriber="+other.String()); got != http.StatusForbidden {
		t.Fatalf("authorizer refusal: expected 403, got %d", got)
	}
}

func TestHandler_Allowed(t *testing.T) {
	user := uuid.New()
	provider := uuid.New()
	h := NewHandler(NewHub(nil), func(_ context.Context, sub string, uid uuid.UUID) error {
		if sub == provider.String() && uid == user {
			return nil
		}
		return errors.New("not yours")
	}, nil)

	if err := h.allowed(context.Background(), user.String(), user); err != nil {
		t.Fatalf("own id must be allowed: %v", err)
	}
	if err := h.allowed(context.Background(), provider.String(), user); err != nil {
		t.Fatalf("owned provider must be allowed: %v", err)
	}
	if err := h.allowed(context.Background(), uuid.NewString(), user); err == nil {
		t.Fatalf("unrelated subscriber must be refused")
	}
}

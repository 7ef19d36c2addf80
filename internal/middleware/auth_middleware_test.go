package middleware_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRequireAuthAndRole(t *testing.T) {
	kasir := model.Actor{ID: uuid.New(), Name: "Kasir", Role: model.RoleKasir}

	auth := new(mocks.MockAuthService)
	auth.On("Authenticate", mock.Anything, "good").Return(kasir, nil)
	auth.On("Authenticate", mock.Anything, "bad").Return(model.Actor{}, errors.New("invalid"))

	app := fiber.New()
	app.Get("/any", middleware.RequireAuth(auth), func(c *fiber.Ctx) error {
		actor, ok := middleware.ActorFrom(c)
		require.True(t, ok)
		return c.SendString(actor.Name)
	})
	app.Get("/admin", middleware.RequireAuth(auth), middleware.RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/any", "", 401},
		{"wrong scheme", "/any", "Basic abc", 401},
		{"invalid token", "/any", "Bearer bad", 401},
		{"valid token", "/any", "Bearer good", 200},
		{"role denied", "/admin", "Bearer good", 403},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

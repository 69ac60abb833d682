package middleware_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/teacherin/handlers"
	"github.com/anjiri1684/teacherin/logging"
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

type staticResolver map[uuid.UUID]services.Principal

func (r staticResolver) ResolvePrincipal(_ context.Context, id uuid.UUID) (services.Principal, error) {
	p, ok := r[id]
	if !ok {
		return services.Principal{}, services.Unauthenticated("account no longer exists")
	}
	return p, nil
}

func sign(t *testing.T, key string, userID string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    models.RoleStudent,
		"exp":     exp.Unix(),
	}).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func newApp(resolver staticResolver) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(logging.Nop())})
	who := func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetPrincipal(c).Role)
	}
	app.Get("/me", middleware.Protected(secret, resolver), who)
	app.Get("/admin", middleware.Protected(secret, resolver), middleware.RequireRole(models.RoleAdmin), who)
	app.Get("/ws", middleware.ProtectedSocket(secret, resolver), who)
	return app
}

func TestProtected(t *testing.T) {
	student := services.Principal{UserID: uuid.New(), Role: models.RoleStudent}
	admin := services.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	app := newApp(staticResolver{student.UserID: student, admin.UserID: admin})
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no token", "/me", "", fiber.StatusUnauthorized},
		{"wrong key", "/me", sign(t, "other", student.UserID.String(), later), fiber.StatusUnauthorized},
		{"expired", "/me", sign(t, secret, student.UserID.String(), time.Now().Add(-time.Minute)), fiber.StatusUnauthorized},
		{"bad subject", "/me", sign(t, secret, "not-a-uuid", later), fiber.StatusUnauthorized},
		{"unknown user", "/me", sign(t, secret, uuid.NewString(), later), fiber.StatusUnauthorized},
		{"student", "/me", sign(t, secret, student.UserID.String(), later), fiber.StatusOK},
		{"student on admin route", "/admin", sign(t, secret, student.UserID.String(), later), fiber.StatusForbidden},
		{"admin", "/admin", sign(t, secret, admin.UserID.String(), later), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestProtectedRequiresBearerScheme(t *testing.T) {
	student := services.Principal{UserID: uuid.New(), Role: models.RoleStudent}
	app := newApp(staticResolver{student.UserID: student})
	tok := sign(t, secret, student.UserID.String(), time.Now().Add(time.Hour))

	for header, status := range map[string]int{
		"Bearer " + tok: fiber.StatusOK,
		"bearer " + tok: fiber.StatusOK,
		tok:             fiber.StatusUnauthorized,
		"Basic " + tok:  fiber.StatusUnauthorized,
	} {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, header[:6])
	}
}

func TestProtectedSocketReadsQueryToken(t *testing.T) {
	student := services.Principal{UserID: uuid.New(), Role: models.RoleStudent}
	app := newApp(staticResolver{student.UserID: student})
	tok := sign(t, secret, student.UserID.String(), time.Now().Add(time.Hour))

	resp, err := app.Test(httptest.NewRequest("GET", "/ws?token="+tok, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(logging.Nop())})
	app.Get("/", middleware.RateLimit(0.001, 2), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusTooManyRequests}, codes)
}

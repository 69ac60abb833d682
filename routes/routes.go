package routes

import (
	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/gofiber/fiber/v2"
)

type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
}

// guards are the middleware chains shared by the route groups.
type guards struct {
	protected fiber.Handler
	limited   fiber.Handler
}

// Setup mounts the whole /api/v1 surface and the websocket endpoint.
func Setup(app *fiber.App, h *handlers.Handler, opts Options) {
	g := guards{
		protected: middleware.Protected(opts.JWTSecret, h.Auth),
		limited:   middleware.RateLimit(opts.RateLimit.RPS, opts.RateLimit.Burst),
	}
	api := app.Group("/api/v1")

	AuthRoutes(api, h, g)
	PublicRoutes(api, h, g)
	BookingRoutes(api, h, g)
	PaymentRoutes(api, h, g)
	ProfileRoutes(api, h, g)
	TeacherRoutes(api, h, g)
	AdminRoutes(api, h, g)
	SocketRoutes(app, h, opts.JWTSecret)
}

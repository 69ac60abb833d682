package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	auth := api.Group("/auth")
	auth.Post("/register", g.limited, h.RegisterUser)
	auth.Post("/login", g.limited, h.LoginUser)
	auth.Get("/me", g.protected, h.GetMe)
}

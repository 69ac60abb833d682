package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	me := api.Group("/me", g.protected)
	me.Post("/onboarding", h.CompleteOnboarding)
	me.Get("/dashboard", h.GetDashboard)
	me.Get("/uploads/signature", h.GenerateUploadSignature)

	me.Get("/favorites", h.ListFavorites)
	me.Put("/favorites/:teacherId", h.AddFavorite)
	me.Delete("/favorites/:teacherId", h.RemoveFavorite)

	me.Get("/notifications", h.ListNotifications)
	me.Post("/notifications/read", h.MarkAllNotificationsRead)
	me.Post("/notifications/:notificationId/read", h.MarkNotificationRead)
}

// SocketRoutes exposes the live notification stream. Browsers cannot set
// headers on the upgrade request, so the token travels as ?token=.
func SocketRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws", middleware.ProtectedSocket(secret, h.Auth), func(c *fiber.Ctx) error {
		p := middleware.GetPrincipal(c)
		return websocket.New(func(conn *websocket.Conn) {
			h.Hub.Serve(p.UserID, conn)
		})(c)
	})
}

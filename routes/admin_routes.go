package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/models"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	admin := api.Group("/admin", g.protected, middleware.RequireRole(models.RoleAdmin))

	users := admin.Group("/users")
	users.Get("", h.ListUsers)
	users.Put("/:userId/status", h.ToggleUserStatus)
	users.Delete("/:userId", h.DeleteUser)

	transactions := admin.Group("/transactions")
	transactions.Get("", h.ListTransactions)
	transactions.Get("/stats", h.GetTransactionStats)
	transactions.Get("/export", h.ExportTransactions)

	admin.Post("/payments/:paymentId/sync", h.SyncPayment)
	admin.Put("/payments/:paymentId/status", h.OverridePayment)

	admin.Get("/settings", h.GetSettings)
	admin.Put("/settings", h.UpdateSettings)

	admin.Get("/payouts", h.ListPayouts)
	admin.Put("/payouts/:payoutId/status", h.UpdatePayoutStatus)

	admin.Put("/orders/:orderId/status", h.SetOrderStatus)
	admin.Post("/skills", h.CreateSkill)
}

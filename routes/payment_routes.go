package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	// the gateway callback carries no bearer token, so the payment routes
	// take their guards one by one
	api.Post("/payments/notification", g.limited, h.PaymentNotification)
	api.Post("/payments", g.protected, h.InitiatePayment)
	api.Get("/payments/:paymentId", g.protected, h.GetPayment)

	orders := api.Group("/orders", g.protected)
	orders.Get("", h.ListOrders)
	orders.Post("", h.CreateOrder)
	orders.Get("/:orderId", h.GetOrder)
	orders.Post("/:orderId/cancel", h.CancelOrder)
	orders.Get("/:orderId/download", h.DownloadOrder)
}

package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	booking := api.Group("/bookings", g.protected)
	booking.Get("", h.ListBookings)
	booking.Post("", h.CreateBooking)
	booking.Get("/:bookingId", h.GetBooking)
	booking.Patch("/:bookingId/status", h.UpdateBookingStatus)
	booking.Put("/:bookingId/session", h.UpsertSession)

	sessions := api.Group("/sessions", g.protected)
	sessions.Get("", h.ListSessions)
	sessions.Post("/:sessionId/start", h.StartSession)
	sessions.Post("/:sessionId/end", h.EndSession)

	reviews := api.Group("/reviews", g.protected)
	reviews.Post("", h.CreateReview)
	reviews.Patch("/:reviewId", h.UpdateReview)
	reviews.Delete("/:reviewId", h.DeleteReview)
}

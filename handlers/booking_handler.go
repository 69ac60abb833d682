package handlers

import (
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	AvailabilitySlotID string  `json:"availability_slot_id" validate:"required,uuid"`
	Mode               string  `json:"mode" validate:"required,oneof=ONLINE OFFLINE"`
	Notes              *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	booking, err := h.Bookings.CreateBooking(c.UserContext(), middleware.GetPrincipal(c), services.CreateBookingInput{
		SlotID: uuid.MustParse(req.AvailabilitySlotID),
		Mode:   req.Mode,
		Notes:  req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (h *Handler) ListBookings(c *fiber.Ctx) error {
	page, err := h.Bookings.ListBookings(c.UserContext(), middleware.GetPrincipal(c), services.BookingQuery{
		Status: c.Query("status"),
		Page:   pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	id, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}
	booking, err := h.Bookings.GetBooking(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

func (h *Handler) UpdateBookingStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}
	var req UpdateBookingStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	booking, err := h.Bookings.UpdateStatus(c.UserContext(), middleware.GetPrincipal(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

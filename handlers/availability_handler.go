package handlers

import (
	"time"

	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/gofiber/fiber/v2"
)

type SlotRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

type CreateSlotsRequest struct {
	Slots []SlotRequest `json:"slots" validate:"required,min=1,max=100,dive"`
}

func (h *Handler) CreateAvailability(c *fiber.Ctx) error {
	var req CreateSlotsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	intervals := make([]utils.Interval, len(req.Slots))
	for i, s := range req.Slots {
		intervals[i] = utils.Interval{Start: s.StartTime, End: s.EndTime}
	}
	slots, err := h.Availability.CreateSlots(c.UserContext(), middleware.GetPrincipal(c), intervals)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": slots})
}

func (h *Handler) ListAvailability(c *fiber.Ctx) error {
	teacherID, err := paramUUID(c, "teacherId")
	if err != nil {
		return err
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return err
	}

	slots, err := h.Availability.ListSlots(c.UserContext(), teacherID, services.SlotQuery{
		From:     from,
		To:       to,
		OnlyFree: c.QueryBool("free", false),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slots})
}

func (h *Handler) DeleteAvailability(c *fiber.Ctx) error {
	id, err := paramUUID(c, "slotId")
	if err != nil {
		return err
	}
	if err := h.Availability.DeleteSlot(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

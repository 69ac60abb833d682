package handlers

import (
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
)

type UpsertSessionRequest struct {
	MeetingLink *string `json:"meeting_link,omitempty" validate:"omitempty,url,max=255"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=255"`
}

func (h *Handler) UpsertSession(c *fiber.Ctx) error {
	bookingID, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}
	var req UpsertSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.Sessions.UpsertSession(c.UserContext(), middleware.GetPrincipal(c), bookingID, services.SessionInput{
		MeetingLink: req.MeetingLink,
		Location:    req.Location,
	})
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *Handler) StartSession(c *fiber.Ctx) error {
	id, err := paramUUID(c, "sessionId")
	if err != nil {
		return err
	}
	session, err := h.Sessions.StartSession(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *Handler) EndSession(c *fiber.Ctx) error {
	id, err := paramUUID(c, "sessionId")
	if err != nil {
		return err
	}
	session, err := h.Sessions.EndSession(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *Handler) ListSessions(c *fiber.Ctx) error {
	page, err := h.Sessions.ListSessions(c.UserContext(), middleware.GetPrincipal(c), services.SessionQuery{
		Status: c.Query("status"),
		Page:   pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

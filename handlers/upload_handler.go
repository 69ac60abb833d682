package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// GenerateUploadSignature signs a direct browser upload of an avatar.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.Avatars == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Avatar uploads are not configured")
	}
	sig, err := h.Avatars.Sign(time.Now())
	if err != nil {
		return err
	}
	return c.JSON(sig)
}

package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/models"
	"github.com/gofiber/fiber/v2"
)

func TeacherRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	teacher := api.Group("/teacher", g.protected, middleware.RequireRole(models.RoleTeacher))

	teacher.Patch("/profile", h.UpdateTeacherProfile)

	availability := teacher.Group("/availability")
	availability.Post("", h.CreateAvailability)
	availability.Delete("/:slotId", h.DeleteAvailability)

	materials := teacher.Group("/materials")
	materials.Get("", h.ListOwnMaterials)
	materials.Post("", h.CreateMaterial)
	materials.Patch("/:materialId", h.UpdateMaterial)
	materials.Delete("/:materialId", h.DeleteMaterial)
	materials.Post("/:materialId/upload-url", h.MaterialUploadURL)

	payouts := teacher.Group("/payouts")
	payouts.Get("", h.ListPayouts)
	payouts.Post("", h.RequestPayout)
	payouts.Get("/stats", h.GetPayoutStats)
}

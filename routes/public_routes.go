package routes

import (
	"github.com/anjiri1684/teacherin/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(api fiber.Router, h *handlers.Handler, g guards) {
	api.Get("/teachers", h.ListTeachers)
	api.Get("/teachers/:teacherId", h.GetTeacher)
	api.Get("/teachers/:teacherId/availability", h.ListAvailability)
	api.Get("/teachers/:teacherId/reviews", h.ListTeacherReviews)
	api.Get("/skills", h.ListSkills)
	api.Get("/materials", h.ListMaterials)
	api.Get("/materials/:materialId", h.GetMaterial)
	api.Get("/settings", h.GetSettings)
}

package handlers

import (
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
)

type OnboardingRequest struct {
	Role            string   `json:"role" validate:"required,oneof=STUDENT TEACHER"`
	Bio             *string  `json:"bio,omitempty" validate:"omitempty,max=5000"`
	City            *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	AvatarURL       *string  `json:"avatar_url,omitempty" validate:"omitempty,url,max=255"`
	ExperienceYears int      `json:"experience_years" validate:"min=0,max=80"`
	PricePerHour    float64  `json:"price_per_hour" validate:"min=0"`
	SkillIDs        []string `json:"skill_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// CompleteOnboarding sets the account role and, for teachers, creates the
// teacher profile. A fresh token is returned since the role changed.
func (h *Handler) CompleteOnboarding(c *fiber.Ctx) error {
	var req OnboardingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.Teachers.Onboard(c.UserContext(), middleware.GetPrincipal(c), services.OnboardInput{
		Role:            req.Role,
		Bio:             req.Bio,
		City:            req.City,
		AvatarURL:       req.AvatarURL,
		ExperienceYears: req.ExperienceYears,
		PricePerHour:    req.PricePerHour,
		SkillIDs:        mustUUIDs(req.SkillIDs),
	})
	if err != nil {
		return err
	}

	token, expiresAt, err := h.Auth.IssueToken(user)
	if err != nil {
		return err
	}
	return c.JSON(services.LoginResult{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) AddFavorite(c *fiber.Ctx) error {
	teacherID, err := paramUUID(c, "teacherId")
	if err != nil {
		return err
	}
	if err := h.Teachers.AddFavorite(c.UserContext(), middleware.GetPrincipal(c), teacherID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) RemoveFavorite(c *fiber.Ctx) error {
	teacherID, err := paramUUID(c, "teacherId")
	if err != nil {
		return err
	}
	if err := h.Teachers.RemoveFavorite(c.UserContext(), middleware.GetPrincipal(c), teacherID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListFavorites(c *fiber.Ctx) error {
	teachers, err := h.Teachers.ListFavorites(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teachers})
}

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	page, err := h.Notifications.List(c.UserContext(), middleware.GetPrincipal(c), c.QueryBool("unread", false), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := paramUUID(c, "notificationId")
	if err != nil {
		return err
	}
	if err := h.Notifications.MarkRead(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := h.Notifications.MarkAllRead(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n})
}

// GetDashboard answers with the dashboard of the caller's role.
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	p := middleware.GetPrincipal(c)
	var (
		out any
		err error
	)
	switch p.Role {
	case models.RoleStudent:
		out, err = h.Dashboards.Student(c.UserContext(), p)
	case models.RoleTeacher:
		out, err = h.Dashboards.Teacher(c.UserContext(), p)
	case models.RoleAdmin:
		out, err = h.Dashboards.Admin(c.UserContext(), p)
	default:
		return services.ErrForbidden
	}
	if err != nil {
		return err
	}
	return c.JSON(out)
}

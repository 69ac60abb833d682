package handlers

import (
	"strings"

	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UpdateTeacherProfileRequest struct {
	PricePerHour    *float64 `json:"price_per_hour,omitempty"`
	ExperienceYears *int     `json:"experience_years,omitempty" validate:"omitempty,min=0,max=80"`
	SkillIDs        []string `json:"skill_ids,omitempty" validate:"omitempty,dive,uuid"`
}

type CreateSkillRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) ListTeachers(c *fiber.Ctx) error {
	minPrice, err := queryFloat(c, "min_price")
	if err != nil {
		return err
	}
	maxPrice, err := queryFloat(c, "max_price")
	if err != nil {
		return err
	}
	minRating, err := queryFloat(c, "min_rating")
	if err != nil {
		return err
	}

	var skills []string
	if raw := c.Query("skills"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	}

	page, err := h.Teachers.ListTeachers(c.UserContext(), services.TeacherQuery{
		Search:    c.Query("search"),
		City:      c.Query("city"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		MinRating: minRating,
		Skills:    skills,
		Page:      pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) GetTeacher(c *fiber.Ctx) error {
	id, err := paramUUID(c, "teacherId")
	if err != nil {
		return err
	}
	teacher, err := h.Teachers.GetTeacher(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(teacher)
}

func (h *Handler) UpdateTeacherProfile(c *fiber.Ctx) error {
	var req UpdateTeacherProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	teacher, err := h.Teachers.UpdateProfile(c.UserContext(), middleware.GetPrincipal(c), services.TeacherProfileUpdate{
		PricePerHour:    req.PricePerHour,
		ExperienceYears: req.ExperienceYears,
		SkillIDs:        mustUUIDs(req.SkillIDs),
	})
	if err != nil {
		return err
	}
	return c.JSON(teacher)
}

func (h *Handler) ListSkills(c *fiber.Ctx) error {
	skills, err := h.Teachers.ListSkills(c.UserContext(), c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": skills})
}

func (h *Handler) CreateSkill(c *fiber.Ctx) error {
	var req CreateSkillRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	skill, err := h.Teachers.CreateSkill(c.UserContext(), middleware.GetPrincipal(c), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(skill)
}

// mustUUIDs converts ids already checked by the uuid validator tag.
func mustUUIDs(raw []string) []uuid.UUID {
	if raw == nil {
		return nil
	}
	ids := make([]uuid.UUID, len(raw))
	for i, r := range raw {
		ids[i] = uuid.MustParse(r)
	}
	return ids
}

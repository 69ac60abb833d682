package handlers

import (
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateReviewRequest struct {
	BookingID string  `json:"booking_id" validate:"required,uuid"`
	Rating    int     `json:"rating" validate:"required"`
	Comment   *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

func (h *Handler) CreateReview(c *fiber.Ctx) error {
	var req CreateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	review, err := h.Reviews.CreateReview(c.UserContext(), middleware.GetPrincipal(c), services.ReviewInput{
		BookingID: uuid.MustParse(req.BookingID),
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

func (h *Handler) UpdateReview(c *fiber.Ctx) error {
	id, err := paramUUID(c, "reviewId")
	if err != nil {
		return err
	}
	var req UpdateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	review, err := h.Reviews.UpdateReview(c.UserContext(), middleware.GetPrincipal(c), id, services.ReviewUpdate{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(review)
}

func (h *Handler) DeleteReview(c *fiber.Ctx) error {
	id, err := paramUUID(c, "reviewId")
	if err != nil {
		return err
	}
	if err := h.Reviews.DeleteReview(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListTeacherReviews(c *fiber.Ctx) error {
	teacherID, err := paramUUID(c, "teacherId")
	if err != nil {
		return err
	}
	page, err := h.Reviews.ListReviews(c.UserContext(), teacherID, services.ReviewQuery{
		MinRating: c.QueryInt("min_rating", 0),
		MaxRating: c.QueryInt("max_rating", 0),
		Page:      pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

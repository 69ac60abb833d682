package services

import (
	"context"
	"fmt"
	"math"

	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ReviewService struct {
	db        *gorm.DB
	publisher events.Publisher
	notifier  Notifier
	log       *zerolog.Logger
}

func NewReviewService(db *gorm.DB, publisher events.Publisher, notifier Notifier, log *zerolog.Logger) *ReviewService {
	return &ReviewService{db: db, publisher: publisher, notifier: notifier, log: log}
}

type RatingSummary struct {
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
}

// Recompute rebuilds the teacher's rating from every review on its
// completed bookings. It must run inside the transaction that changed
// the reviews.
func Recompute(tx *gorm.DB, teacherID uuid.UUID) (RatingSummary, error) {
	var row struct {
		Average float64
		Total   int
	}
	err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(reviews.rating), 0) AS average, COUNT(reviews.id) AS total").
		Joins("JOIN bookings ON bookings.id = reviews.booking_id").
		Where("bookings.teacher_id = ? AND bookings.status = ?", teacherID, models.BookingCompleted).
		Scan(&row).Error
	if err != nil {
		return RatingSummary{}, fmt.Errorf("aggregate ratings: %w", err)
	}

	summary := RatingSummary{AvgRating: math.Round(row.Average*100) / 100, ReviewCount: row.Total}
	err = tx.Model(&models.Teacher{}).Where("id = ?", teacherID).Updates(map[string]any{
		"avg_rating":   summary.AvgRating,
		"review_count": summary.ReviewCount,
	}).Error
	if err != nil {
		return RatingSummary{}, fmt.Errorf("store rating: %w", err)
	}
	return summary, nil
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return Validation("rating must be between 1 and 5")
	}
	return nil
}

type ReviewInput struct {
	BookingID uuid.UUID
	Rating    int
	Comment   *string
}

func (s *ReviewService) CreateReview(ctx context.Context, p Principal, in ReviewInput) (*models.Review, error) {
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}

	var (
		review  models.Review
		booking models.Booking
		summary RatingSummary
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", in.BookingID).Error; err != nil {
			return dbErr(err, "load booking", ErrBookingNotFound, nil)
		}
		if err := Authorize(p, ActReviewCreate, booking.StudentID); err != nil {
			return err
		}
		if booking.Status != models.BookingCompleted {
			return ErrBookingNotCompleted
		}

		var existing int64
		if err := tx.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check review: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateReview
		}

		review = models.Review{BookingID: booking.ID, Rating: in.Rating, Comment: in.Comment}
		if err := tx.Create(&review).Error; err != nil {
			return dbErr(err, "create review", nil, ErrDuplicateReview)
		}

		var err error
		summary, err = Recompute(tx, booking.TeacherID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.changed(review.ID, booking.TeacherID, "created", summary)

	teacherUserID, err := firstID(s.db.WithContext(ctx).Model(&models.Teacher{}).Where("id = ?", booking.TeacherID), "user_id")
	if err != nil {
		s.log.Warn().Err(err).Str("teacher_id", booking.TeacherID.String()).Msg("teacher user not resolved for review notification")
	} else if teacherUserID != uuid.Nil {
		s.notifier.Notify(ctx, teacherUserID, NotifyReviewReceived, map[string]any{
			"review_id":  review.ID,
			"booking_id": booking.ID,
			"rating":     review.Rating,
		})
	}
	return &review, nil
}

type ReviewUpdate struct {
	Rating  *int
	Comment *string
}

func (s *ReviewService) UpdateReview(ctx context.Context, p Principal, id uuid.UUID, in ReviewUpdate) (*models.Review, error) {
	if in.Rating != nil {
		if err := validRating(*in.Rating); err != nil {
			return nil, err
		}
	}

	var (
		review  models.Review
		summary RatingSummary
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Booking").First(&review, "id = ?", id).Error; err != nil {
			return dbErr(err, "load review", ErrReviewNotFound, nil)
		}
		if err := Authorize(p, ActReviewUpdate, review.Booking.StudentID); err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Rating != nil {
			updates["rating"] = *in.Rating
			review.Rating = *in.Rating
		}
		if in.Comment != nil {
			updates["comment"] = *in.Comment
			review.Comment = in.Comment
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Review{}).Where("id = ?", review.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update review: %w", err)
			}
		}

		var err error
		summary, err = Recompute(tx, review.Booking.TeacherID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.changed(review.ID, review.Booking.TeacherID, "updated", summary)
	return &review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, p Principal, id uuid.UUID) error {
	var (
		review  models.Review
		summary RatingSummary
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Booking").First(&review, "id = ?", id).Error; err != nil {
			return dbErr(err, "load review", ErrReviewNotFound, nil)
		}
		if err := Authorize(p, ActReviewDelete, review.Booking.StudentID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Review{}, "id = ?", review.ID).Error; err != nil {
			return fmt.Errorf("delete review: %w", err)
		}

		var err error
		summary, err = Recompute(tx, review.Booking.TeacherID)
		return err
	})
	if err != nil {
		return err
	}

	s.changed(review.ID, review.Booking.TeacherID, "deleted", summary)
	return nil
}

func (s *ReviewService) changed(reviewID, teacherID uuid.UUID, op string, summary RatingSummary) {
	s.log.Info().
		Str("review_id", reviewID.String()).
		Str("teacher_id", teacherID.String()).
		Str("op", op).
		Float64("avg_rating", summary.AvgRating).
		Int("review_count", summary.ReviewCount).
		Msg("teacher rating recomputed")

	err := s.publisher.PublishJSON(events.SubjectReviewChanged, events.ReviewChanged{
		ReviewID:    reviewID.String(),
		TeacherID:   teacherID.String(),
		Operation:   op,
		AvgRating:   summary.AvgRating,
		ReviewCount: summary.ReviewCount,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("review changed event not published")
	}
}

type ReviewQuery struct {
	MinRating int
	MaxRating int
	Page      utils.PageRequest
}

func (s *ReviewService) ListReviews(ctx context.Context, teacherID uuid.UUID, q ReviewQuery) (utils.Page[models.Review], error) {
	var page utils.Page[models.Review]
	if q.MinRating != 0 && validRating(q.MinRating) != nil || q.MaxRating != 0 && validRating(q.MaxRating) != nil {
		return page, Validation("rating filters must be between 1 and 5")
	}

	filter := Filter{where("bookings.teacher_id = ?", teacherID)}.
		When(q.MinRating > 0, where("reviews.rating >= ?", q.MinRating)).
		When(q.MaxRating > 0, where("reviews.rating <= ?", q.MaxRating))

	base := func() *gorm.DB {
		return filter.Scope(s.db.WithContext(ctx).Model(&models.Review{}).
			Joins("JOIN bookings ON bookings.id = reviews.booking_id"))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return page, fmt.Errorf("count reviews: %w", err)
	}

	var reviews []models.Review
	err := base().
		Select("reviews.*").
		Preload("Booking.Student").
		Order("reviews.created_at DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&reviews).Error
	if err != nil {
		return page, fmt.Errorf("list reviews: %w", err)
	}
	return utils.NewPage(reviews, q.Page, total), nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/metrics"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// bookingTransitions lists the moves allowed without an admin override.
// PENDING -> PAID is only reachable through payment reconciliation and
// CONFIRMED -> COMPLETED only through ending the session; the permission
// table keeps both away from direct status updates.
var bookingTransitions = map[string][]string{
	models.BookingPending:   {models.BookingPaid, models.BookingConfirmed, models.BookingCancelled},
	models.BookingPaid:      {models.BookingConfirmed, models.BookingCancelled, models.BookingRefunded},
	models.BookingConfirmed: {models.BookingCompleted, models.BookingCancelled},
}

func canTransition(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isKnownBookingStatus(s string) bool {
	for _, known := range models.BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func isClosedBookingStatus(s string) bool {
	return s == models.BookingCancelled || s == models.BookingRefunded
}

// transitionBooking moves b to the target status inside tx and keeps the
// slot flag in step. forced skips the transition table (admin override).
// It reports false when b is already in the target status.
func transitionBooking(tx *gorm.DB, b *models.Booking, to string, forced bool) (bool, error) {
	from := b.Status
	if from == to {
		return false, nil
	}
	if !forced && !canTransition(from, to) {
		return false, InvalidState(fmt.Sprintf("cannot move booking from %s to %s", from, to))
	}

	if to == models.BookingConfirmed {
		iv := utils.Interval{Start: b.StartTime.UTC(), End: b.EndTime.UTC()}
		overlap, args := iv.OverlapClause("start_time", "end_time")
		var clashes int64
		err := tx.Model(&models.Booking{}).
			Where("teacher_id = ? AND status = ? AND id <> ?", b.TeacherID, models.BookingConfirmed, b.ID).
			Where(overlap, args...).
			Count(&clashes).Error
		if err != nil {
			return false, fmt.Errorf("check confirmed overlap: %w", err)
		}
		if clashes > 0 {
			return false, ErrBookingConflict
		}
	}

	if b.AvailabilitySlotID != nil {
		switch {
		case isClosedBookingStatus(to) && !isClosedBookingStatus(from):
			err := tx.Model(&models.AvailabilitySlot{}).
				Where("id = ?", *b.AvailabilitySlotID).
				Update("is_booked", false).Error
			if err != nil {
				return false, fmt.Errorf("release slot: %w", err)
			}
		case isClosedBookingStatus(from) && !isClosedBookingStatus(to):
			res := tx.Model(&models.AvailabilitySlot{}).
				Where("id = ? AND is_booked = ?", *b.AvailabilitySlotID, false).
				Update("is_booked", true)
			if res.Error != nil {
				return false, fmt.Errorf("reclaim slot: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return false, ErrAlreadyBooked
			}
		}
	}

	if err := tx.Model(b).Update("status", to).Error; err != nil {
		return false, dbErr(err, "update booking status", nil, ErrBookingConflict)
	}
	b.Status = to
	return true, nil
}

// lifecycle fans a committed booking change out to metrics, the event
// bus and the participants.
type lifecycle struct {
	db        *gorm.DB
	publisher events.Publisher
	notifier  Notifier
	log       *zerolog.Logger
}

func (l lifecycle) statusChanged(ctx context.Context, b *models.Booking, from string, actor uuid.UUID) {
	metrics.IncBookingTransition(b.Status)

	err := l.publisher.PublishJSON(events.SubjectBookingStatusChanged, events.BookingStatusChanged{
		BookingID: b.ID.String(),
		TeacherID: b.TeacherID.String(),
		StudentID: b.StudentID.String(),
		From:      from,
		To:        b.Status,
		Actor:     actor.String(),
	})
	if err != nil {
		l.log.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("booking status event not published")
	}

	kind := "booking." + strings.ToLower(b.Status)
	payload := map[string]any{
		"booking_id": b.ID,
		"status":     b.Status,
		"start_time": b.StartTime,
		"end_time":   b.EndTime,
	}
	for _, userID := range l.participants(ctx, b) {
		if userID != actor {
			l.notifier.Notify(ctx, userID, kind, payload)
		}
	}
}

// participants returns the student and teacher user ids of b.
func (l lifecycle) participants(ctx context.Context, b *models.Booking) []uuid.UUID {
	ids := []uuid.UUID{b.StudentID}
	teacherUserID, err := firstID(l.db.WithContext(ctx).Model(&models.Teacher{}).Where("id = ?", b.TeacherID), "user_id")
	if err != nil || teacherUserID == uuid.Nil {
		l.log.Warn().Err(err).Str("teacher_id", b.TeacherID.String()).Msg("teacher user not resolved for notification")
		return ids
	}
	return append(ids, teacherUserID)
}

type BookingService struct {
	db *gorm.DB
	lifecycle
	log *zerolog.Logger
}

func NewBookingService(db *gorm.DB, publisher events.Publisher, notifier Notifier, log *zerolog.Logger) *BookingService {
	return &BookingService{
		db:        db,
		lifecycle: lifecycle{db: db, publisher: publisher, notifier: notifier, log: log},
		log:       log,
	}
}

type CreateBookingInput struct {
	SlotID uuid.UUID
	Mode   string
	Notes  *string
}

func (s *BookingService) CreateBooking(ctx context.Context, p Principal, in CreateBookingInput) (*models.Booking, error) {
	if err := Authorize(p, ActBookingCreate, p.ProfileID); err != nil {
		return nil, err
	}
	if in.Mode != models.ModeOnline && in.Mode != models.ModeOffline {
		return nil, Validation("mode must be %s or %s", models.ModeOnline, models.ModeOffline)
	}

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.AvailabilitySlot
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, "id = ?", in.SlotID).Error
		if err != nil {
			return dbErr(err, "load slot", ErrSlotNotFound, nil)
		}
		if slot.IsBooked {
			return ErrAlreadyBooked
		}

		var teacher models.Teacher
		if err := tx.First(&teacher, "id = ?", slot.TeacherID).Error; err != nil {
			return dbErr(err, "load teacher", ErrTeacherNotFound, nil)
		}

		iv, err := utils.NewInterval(slot.StartTime, slot.EndTime)
		if err != nil {
			return Validation("slot has an invalid time range")
		}

		overlap, args := iv.OverlapClause("start_time", "end_time")
		var clashes int64
		err = tx.Model(&models.Booking{}).
			Where("teacher_id = ? AND status = ?", teacher.ID, models.BookingConfirmed).
			Where(overlap, args...).
			Count(&clashes).Error
		if err != nil {
			return fmt.Errorf("check booking overlap: %w", err)
		}
		if clashes > 0 {
			return ErrBookingConflict
		}

		slotID := slot.ID
		booking = models.Booking{
			TeacherID:          teacher.ID,
			StudentID:          p.UserID,
			AvailabilitySlotID: &slotID,
			StartTime:          iv.Start,
			EndTime:            iv.End,
			Status:             models.BookingPending,
			TotalPrice:         roundMoney(teacher.PricePerHour * iv.Hours()),
			Mode:               in.Mode,
			Notes:              in.Notes,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return dbErr(err, "create booking", nil, ErrBookingConflict)
		}

		res := tx.Model(&models.AvailabilitySlot{}).
			Where("id = ? AND is_booked = ?", slot.ID, false).
			Update("is_booked", true)
		if res.Error != nil {
			return fmt.Errorf("mark slot booked: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyBooked
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("teacher_id", booking.TeacherID.String()).
		Float64("total_price", booking.TotalPrice).
		Msg("booking created")

	err = s.publisher.PublishJSON(events.SubjectBookingCreated, events.BookingStatusChanged{
		BookingID: booking.ID.String(),
		TeacherID: booking.TeacherID.String(),
		StudentID: booking.StudentID.String(),
		To:        booking.Status,
		Actor:     p.UserID.String(),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("booking created event not published")
	}
	for _, userID := range s.participants(ctx, &booking) {
		if userID != p.UserID {
			s.notifier.Notify(ctx, userID, NotifyBookingCreated, map[string]any{
				"booking_id": booking.ID,
				"start_time": booking.StartTime,
				"end_time":   booking.EndTime,
				"mode":       booking.Mode,
			})
		}
	}
	return &booking, nil
}

type BookingQuery struct {
	Status string
	Page   utils.PageRequest
}

func (s *BookingService) ListBookings(ctx context.Context, p Principal, q BookingQuery) (utils.Page[models.Booking], error) {
	var page utils.Page[models.Booking]
	if q.Status != "" && !isKnownBookingStatus(q.Status) {
		return page, Validation("unknown booking status %q", q.Status)
	}

	var filter Filter
	switch {
	case p.UserID == uuid.Nil:
		return page, ErrUnauthenticated
	case p.IsAdmin():
	case p.IsTeacher():
		filter = filter.When(true, where("teacher_id = ?", p.ProfileID))
	case p.IsStudent():
		filter = filter.When(true, where("student_id = ?", p.UserID))
	default:
		return page, ErrForbidden
	}
	filter = filter.When(q.Status != "", where("status = ?", q.Status))

	db := s.db.WithContext(ctx)
	var total int64
	if err := filter.Scope(db.Model(&models.Booking{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count bookings: %w", err)
	}

	var bookings []models.Booking
	err := filter.Scope(db.Model(&models.Booking{})).
		Preload("Teacher.User").
		Preload("Student").
		Order("start_time DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&bookings).Error
	if err != nil {
		return page, fmt.Errorf("list bookings: %w", err)
	}
	return utils.NewPage(bookings, q.Page, total), nil
}

func (s *BookingService) GetBooking(ctx context.Context, p Principal, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Teacher.User").
		Preload("Student").
		First(&booking, "id = ?", id).Error
	if err != nil {
		return nil, dbErr(err, "load booking", ErrBookingNotFound, nil)
	}
	if err := Authorize(p, ActBookingView, booking.StudentID, booking.TeacherID); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateStatus applies a direct status change requested by a participant
// or an admin.
func (s *BookingService) UpdateStatus(ctx context.Context, p Principal, id uuid.UUID, to string) (*models.Booking, error) {
	if !isKnownBookingStatus(to) {
		return nil, Validation("unknown booking status %q", to)
	}
	if p.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	var (
		booking models.Booking
		from    string
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", id).Error
		if err != nil {
			return dbErr(err, "load booking", ErrBookingNotFound, nil)
		}
		if err := Authorize(p, bookingStatusAction(to), booking.StudentID, booking.TeacherID); err != nil {
			return err
		}
		if booking.Status == models.BookingCompleted && !p.IsAdmin() {
			return InvalidState("completed bookings can only be changed by an admin")
		}

		from = booking.Status
		changed, err = transitionBooking(tx, &booking, to, p.IsAdmin())
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info().
			Str("booking_id", booking.ID.String()).
			Str("from", from).
			Str("to", booking.Status).
			Str("actor", p.UserID.String()).
			Msg("booking status updated")
		s.statusChanged(ctx, &booking, from, p.UserID)
	}
	return &booking, nil
}

// Upcoming returns bookings in the given statuses that start inside
// [from, to). Used by the reminder job.
func (s *BookingService) Upcoming(ctx context.Context, from, to time.Time, statuses ...string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Teacher.User").
		Preload("Student").
		Where("status IN ? AND start_time >= ? AND start_time < ?", statuses, from.UTC(), to.UTC()).
		Order("start_time").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list upcoming bookings: %w", err)
	}
	return bookings, nil
}

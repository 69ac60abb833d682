package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionService struct {
	db *gorm.DB
	lifecycle
	log *zerolog.Logger
}

func NewSessionService(db *gorm.DB, publisher events.Publisher, notifier Notifier, log *zerolog.Logger) *SessionService {
	return &SessionService{
		db:        db,
		lifecycle: lifecycle{db: db, publisher: publisher, notifier: notifier, log: log},
		log:       log,
	}
}

type SessionInput struct {
	MeetingLink *string
	Location    *string
}

// UpsertSession creates or updates the single session of a booking.
func (s *SessionService) UpsertSession(ctx context.Context, p Principal, bookingID uuid.UUID, in SessionInput) (*models.Session, error) {
	if in.MeetingLink == nil && in.Location == nil {
		return nil, Validation("a meeting link or a location is required")
	}

	var session models.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			return dbErr(err, "load booking", ErrBookingNotFound, nil)
		}
		if err := Authorize(p, ActSessionUpsert, booking.TeacherID); err != nil {
			return err
		}
		if isClosedBookingStatus(booking.Status) {
			return InvalidState("sessions cannot be scheduled for a " + booking.Status + " booking")
		}

		err := tx.Where("booking_id = ?", booking.ID).Limit(1).Find(&session).Error
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if in.MeetingLink != nil {
			session.MeetingLink = in.MeetingLink
		}
		if in.Location != nil {
			session.Location = in.Location
		}
		if session.ID == uuid.Nil {
			session.BookingID = booking.ID
			return dbErr(tx.Create(&session).Error, "create session", nil, Conflict("session already exists for this booking"))
		}
		return dbErr(tx.Save(&session).Error, "update session", nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// StartSession stamps the start time and confirms the booking.
func (s *SessionService) StartSession(ctx context.Context, p Principal, sessionID uuid.UUID) (*models.Session, error) {
	return s.advance(ctx, p, sessionID, ActSessionStart, func(session *models.Session, now time.Time) (string, error) {
		if session.StartedAt != nil {
			return "", InvalidState("session already started")
		}
		session.StartedAt = &now
		return models.BookingConfirmed, nil
	})
}

// EndSession stamps the end time and completes the booking.
func (s *SessionService) EndSession(ctx context.Context, p Principal, sessionID uuid.UUID) (*models.Session, error) {
	return s.advance(ctx, p, sessionID, ActSessionEnd, func(session *models.Session, now time.Time) (string, error) {
		if session.StartedAt == nil {
			return "", InvalidState("session has not started")
		}
		if session.EndedAt != nil {
			return "", InvalidState("session already ended")
		}
		session.EndedAt = &now
		return models.BookingCompleted, nil
	})
}

func (s *SessionService) advance(ctx context.Context, p Principal, sessionID uuid.UUID, action Action,
	step func(*models.Session, time.Time) (string, error)) (*models.Session, error) {
	var (
		session models.Session
		from    string
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			return dbErr(err, "load session", ErrSessionNotFound, nil)
		}
		var booking models.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", session.BookingID).Error
		if err != nil {
			return dbErr(err, "load booking", ErrBookingNotFound, nil)
		}
		if err := Authorize(p, action, booking.TeacherID); err != nil {
			return err
		}

		to, err := step(&session, time.Now().UTC().Truncate(time.Second))
		if err != nil {
			return err
		}
		from = booking.Status
		if changed, err = transitionBooking(tx, &booking, to, false); err != nil {
			return err
		}
		if err := tx.Save(&session).Error; err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		session.Booking = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.statusChanged(ctx, &session.Booking, from, p.UserID)
	}
	return &session, nil
}

type SessionQuery struct {
	Status string
	Page   utils.PageRequest
}

func (s *SessionService) ListSessions(ctx context.Context, p Principal, q SessionQuery) (utils.Page[models.Session], error) {
	var page utils.Page[models.Session]
	if q.Status != "" && !isKnownBookingStatus(q.Status) {
		return page, Validation("unknown booking status %q", q.Status)
	}

	var filter Filter
	switch {
	case p.UserID == uuid.Nil:
		return page, ErrUnauthenticated
	case p.IsAdmin():
	case p.IsTeacher():
		filter = filter.When(true, where("bookings.teacher_id = ?", p.ProfileID))
	case p.IsStudent():
		filter = filter.When(true, where("bookings.student_id = ?", p.UserID))
	default:
		return page, ErrForbidden
	}
	filter = filter.When(q.Status != "", where("bookings.status = ?", q.Status))

	base := func() *gorm.DB {
		return filter.Scope(s.db.WithContext(ctx).Model(&models.Session{}).
			Joins("JOIN bookings ON bookings.id = sessions.booking_id"))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return page, fmt.Errorf("count sessions: %w", err)
	}

	var sessions []models.Session
	err := base().
		Select("sessions.*").
		Preload("Booking.Teacher.User").
		Preload("Booking.Student").
		Order("bookings.start_time DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&sessions).Error
	if err != nil {
		return page, fmt.Errorf("list sessions: %w", err)
	}
	return utils.NewPage(sessions, q.Page, total), nil
}

// MeetingLinks maps booking ids to the meeting link of their session.
// Bookings without a session or without a link are absent.
func (s *SessionService) MeetingLinks(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	links := make(map[uuid.UUID]string, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return links, nil
	}
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("booking_id IN ? AND meeting_link IS NOT NULL", bookingIDs).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load meeting links: %w", err)
	}
	for _, sess := range sessions {
		if sess.MeetingLink != nil && *sess.MeetingLink != "" {
			links[sess.BookingID] = *sess.MeetingLink
		}
	}
	return links, nil
}

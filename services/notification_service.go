package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pusher delivers a live message to a connected user.
type Pusher interface {
	Push(userID uuid.UUID, message any) bool
}

type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlContent string) error
}

type NotificationService struct {
	db     *gorm.DB
	pusher Pusher
	mailer Mailer
	log    *zerolog.Logger
}

func NewNotificationService(db *gorm.DB, pusher Pusher, mailer Mailer, log *zerolog.Logger) *NotificationService {
	return &NotificationService{db: db, pusher: pusher, mailer: mailer, log: log}
}

// emailed lists the kinds that also go out by email.
var emailed = map[string]string{
	NotifyBookingPaid:      "Your lesson is paid",
	NotifyBookingCancelled: "A lesson was cancelled",
	NotifySessionReminder:  "Your lesson starts soon",
}

// Notify stores the notification, pushes it to the user's live
// connection and emails it for the kinds that warrant it. Failures are
// logged and never returned.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("encode notification payload")
		return
	}

	n := models.Notification{UserID: userID, Type: kind, Payload: datatypes.JSON(body)}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Str("kind", kind).Msg("store notification")
		return
	}

	if s.pusher != nil {
		s.pusher.Push(userID, n)
	}

	subject, ok := emailed[kind]
	if !ok || s.mailer == nil {
		return
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "full_name", "email").First(&user, "id = ?", userID).Error; err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("notification recipient not found")
		return
	}
	html := fmt.Sprintf("<h1>%s</h1>%s", subject, emailBody(kind, payload))
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.mailer.Send(sendCtx, user.Email, user.FullName, subject, html); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID.String()).Str("kind", kind).Msg("notification email not sent")
		}
	}()
}

func emailBody(kind string, payload map[string]any) string {
	start := ""
	if t, ok := payload["start_time"].(time.Time); ok {
		start = t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}
	switch kind {
	case NotifyBookingPaid:
		return fmt.Sprintf("<p>Payment for your lesson on %s was received.</p>", start)
	case NotifyBookingCancelled:
		return fmt.Sprintf("<p>The lesson on %s has been cancelled.</p>", start)
	case NotifySessionReminder:
		body := fmt.Sprintf("<p>Your lesson starts at %s.</p>", start)
		if link, ok := payload["meeting_link"].(string); ok && link != "" {
			body += fmt.Sprintf(`<p>Join here: <a href="%s">%s</a></p>`, link, link)
		}
		return body
	default:
		return ""
	}
}

func (s *NotificationService) List(ctx context.Context, p Principal, unreadOnly bool, req utils.PageRequest) (utils.Page[models.Notification], error) {
	var page utils.Page[models.Notification]
	if p.UserID == uuid.Nil {
		return page, ErrUnauthenticated
	}

	filter := Filter{where("user_id = ?", p.UserID)}.When(unreadOnly, where("read_at IS NULL"))
	db := s.db.WithContext(ctx)

	var total int64
	if err := filter.Scope(db.Model(&models.Notification{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count notifications: %w", err)
	}
	var rows []models.Notification
	err := filter.Scope(db.Model(&models.Notification{})).
		Order("created_at DESC").
		Offset(req.Offset()).
		Limit(req.Limit).
		Find(&rows).Error
	if err != nil {
		return page, fmt.Errorf("list notifications: %w", err)
	}
	return utils.NewPage(rows, req, total), nil
}

func (s *NotificationService) MarkRead(ctx context.Context, p Principal, id uuid.UUID) error {
	if p.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, p.UserID).
		Update("read_at", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, p.UserID).Count(&n)
		if n == 0 {
			return NotFound("notification not found")
		}
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p Principal) (int64, error) {
	if p.UserID == uuid.Nil {
		return 0, ErrUnauthenticated
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", p.UserID).
		Update("read_at", time.Now().UTC())
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

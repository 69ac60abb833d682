package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/services"
	"github.com/google/uuid"
)

const (
	reminderLead   = 60 * time.Minute
	reminderWindow = 5 * time.Minute
)

// SendSessionReminders notifies both parties of confirmed or paid
// lessons starting 60 to 65 minutes from now. The window matches the
// five minute schedule so each lesson is reminded once.
func (r *Runner) SendSessionReminders(ctx context.Context) error {
	now := r.clock()
	lower := now.Add(reminderLead)
	upper := lower.Add(reminderWindow)

	bookings, err := r.Bookings.Upcoming(ctx, lower, upper, models.BookingConfirmed, models.BookingPaid)
	if err != nil {
		return err
	}
	if len(bookings) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	links, err := r.Sessions.MeetingLinks(ctx, ids)
	if err != nil {
		return err
	}

	for _, b := range bookings {
		payload := map[string]any{
			"booking_id":   b.ID.String(),
			"start_time":   b.StartTime,
			"end_time":     b.EndTime,
			"mode":         b.Mode,
			"meeting_link": links[b.ID],
		}
		r.Notifier.Notify(ctx, b.StudentID, services.NotifySessionReminder, payload)
		if b.Teacher.UserID != uuid.Nil {
			r.Notifier.Notify(ctx, b.Teacher.UserID, services.NotifySessionReminder, payload)
		}
	}
	r.Log.Info().Int("count", len(bookings)).Msg("session reminders sent")
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"time"

	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const jobTimeout = 2 * time.Minute

// Runner holds what the periodic jobs need.
type Runner struct {
	Bookings *services.BookingService
	Sessions *services.SessionService
	Payments *services.PaymentService
	Notifier services.Notifier
	Config   config.JobsConfig
	Log      *zerolog.Logger

	now func() time.Time
}

// Schedule registers every job on c.
func (r *Runner) Schedule(c *cron.Cron) error {
	if _, err := c.AddFunc(r.Config.ReminderSpec, r.wrap("session_reminders", r.SendSessionReminders)); err != nil {
		return fmt.Errorf("schedule session reminders: %w", err)
	}
	if _, err := c.AddFunc(r.Config.PaymentSyncSpec, r.wrap("payment_sync", r.SyncPendingPayments)); err != nil {
		return fmt.Errorf("schedule payment sync: %w", err)
	}
	return nil
}

func (r *Runner) wrap(name string, job func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			r.Log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		r.Log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	}
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

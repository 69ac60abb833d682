package services

import (
	"context"

	"github.com/google/uuid"
)

const (
	NotifyBookingCreated   = "booking.created"
	NotifyBookingPaid      = "booking.paid"
	NotifyBookingConfirmed = "booking.confirmed"
	NotifyBookingCompleted = "booking.completed"
	NotifyBookingCancelled = "booking.cancelled"
	NotifyBookingRefunded  = "booking.refunded"
	NotifyReviewReceived   = "review.received"
	NotifySessionReminder  = "session.reminder"
)

// Notifier delivers a user-facing notification. Delivery is best effort:
// implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind string, payload map[string]any)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uuid.UUID, string, map[string]any) {}

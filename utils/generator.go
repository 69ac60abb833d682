package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bookingOrderPrefix = "booking-"

// BookingOrderID builds the gateway order id for a booking payment
// attempt: booking-{bookingID}-{unix millis}.
func BookingOrderID(bookingID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s%s-%d", bookingOrderPrefix, bookingID, now.UnixMilli())
}

// ParseBookingOrderID extracts the booking id from an order id produced
// by BookingOrderID.
func ParseBookingOrderID(orderID string) (uuid.UUID, bool) {
	if !strings.HasPrefix(orderID, bookingOrderPrefix) {
		return uuid.Nil, false
	}
	rest := strings.TrimPrefix(orderID, bookingOrderPrefix)
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest[:idx])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

package events_test

import (
	"encoding/json"
	"testing"

	"github.com/anjiri1684/teacherin/events"
	"github.com/stretchr/testify/require"
)

func TestMarshalEnvelope(t *testing.T) {
	b, err := events.Marshal(events.SubjectBookingStatusChanged, events.BookingStatusChanged{
		BookingID: "b1",
		From:      "PENDING",
		To:        "PAID",
		Actor:     "gateway",
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "booking.status_changed", decoded["event_type"])
	require.NotEmpty(t, decoded["occurred_at"])

	data := decoded["data"].(map[string]interface{})
	require.Equal(t, "PAID", data["to"])
	require.Equal(t, "gateway", data["actor"])
}

func TestNopPublisher(t *testing.T) {
	var p events.Publisher = events.NopPublisher{}
	require.NoError(t, p.PublishJSON(events.SubjectReviewChanged, events.ReviewChanged{ReviewID: "r1"}))
}

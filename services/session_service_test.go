package services

import (
	"context"
	"testing"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.db, f.publisher, f.notifier, f.log)
	sam := f.student(t, "sam")
	tara := f.teacher(t, "tara", 100000)
	omar := f.teacher(t, "omar", 100000)
	b := f.booking(t, sam, tara, base, time.Hour, models.BookingPaid)
	ctx := context.Background()

	_, err := svc.UpsertSession(ctx, tara, b.ID, SessionInput{})
	requireKind(t, err, KindValidation)

	link := "https://meet.example/one"
	_, err = svc.UpsertSession(ctx, omar, b.ID, SessionInput{MeetingLink: &link})
	requireKind(t, err, KindForbidden)
	_, err = svc.UpsertSession(ctx, sam, b.ID, SessionInput{MeetingLink: &link})
	requireKind(t, err, KindForbidden)

	session, err := svc.UpsertSession(ctx, tara, b.ID, SessionInput{MeetingLink: &link})
	require.NoError(t, err)

	room := "Room 4"
	again, err := svc.UpsertSession(ctx, tara, b.ID, SessionInput{Location: &room})
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID, "one session per booking")
	require.NotNil(t, again.MeetingLink)
	assert.Equal(t, link, *again.MeetingLink)

	_, err = svc.EndSession(ctx, tara, session.ID)
	requireKind(t, err, KindInvalidState)

	started, err := svc.StartSession(ctx, tara, session.ID)
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, models.BookingConfirmed, started.Booking.Status)

	_, err = svc.StartSession(ctx, tara, session.ID)
	requireKind(t, err, KindInvalidState)

	ended, err := svc.EndSession(ctx, tara, session.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, models.BookingCompleted, ended.Booking.Status)

	var stored models.Booking
	f.reload(t, &stored, b.ID)
	assert.Equal(t, models.BookingCompleted, stored.Status)
	assert.Contains(t, f.notifier.kindsFor(sam.UserID), NotifyBookingCompleted)

	_, err = svc.StartSession(ctx, tara, uuid.New())
	requireKind(t, err, KindNotFound)
}

func TestUpsertSessionRejectsClosedBookings(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.db, f.publisher, f.notifier, f.log)
	sam := f.student(t, "sam")
	tara := f.teacher(t, "tara", 100000)
	b := f.booking(t, sam, tara, base, time.Hour, models.BookingCancelled)

	link := "https://meet.example/x"
	_, err := svc.UpsertSession(context.Background(), tara, b.ID, SessionInput{MeetingLink: &link})
	requireKind(t, err, KindInvalidState)
}

func TestListSessionsScopedByRole(t *testing.T) {
	f := newFixture(t)
	svc := NewSessionService(f.db, f.publisher, f.notifier, f.log)
	sam := f.student(t, "sam")
	sue := f.student(t, "sue")
	tara := f.teacher(t, "tara", 100000)
	ctx := context.Background()

	link := "https://meet.example/x"
	for i, student := range []Principal{sam, sue} {
		b := f.booking(t, student, tara, base.Add(time.Duration(i)*2*time.Hour), time.Hour, models.BookingConfirmed)
		_, err := svc.UpsertSession(ctx, tara, b.ID, SessionInput{MeetingLink: &link})
		require.NoError(t, err)
	}

	page := utils.NewPageRequest(1, 10)
	mine, err := svc.ListSessions(ctx, sam, SessionQuery{Page: page})
	require.NoError(t, err)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, sam.UserID, mine.Data[0].Booking.StudentID)

	all, err := svc.ListSessions(ctx, tara, SessionQuery{Page: page})
	require.NoError(t, err)
	assert.Len(t, all.Data, 2)

	_, err = svc.ListSessions(ctx, tara, SessionQuery{Status: "LOST", Page: page})
	requireKind(t, err, KindValidation)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlotsRejectsOverlapInsideBatch(t *testing.T) {
	f := newFixture(t)
	svc := NewAvailabilityService(f.db, f.log)
	teacher := f.teacher(t, "tara", 100000)

	_, err := svc.CreateSlots(context.Background(), teacher, []utils.Interval{
		{Start: base, End: base.Add(time.Hour)},
		{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)},
	})
	requireKind(t, err, KindConflict)

	var count int64
	require.NoError(t, f.db.Model(&models.AvailabilitySlot{}).Count(&count).Error)
	assert.Zero(t, count, "a rejected batch must not leave partial slots")
}

func TestCreateSlotsChecksExistingFreeSlots(t *testing.T) {
	f := newFixture(t)
	svc := NewAvailabilityService(f.db, f.log)
	teacher := f.teacher(t, "tara", 100000)
	ctx := context.Background()

	_, err := svc.CreateSlots(ctx, teacher, []utils.Interval{{Start: base, End: base.Add(time.Hour)}})
	require.NoError(t, err)

	_, err = svc.CreateSlots(ctx, teacher, []utils.Interval{{Start: base.Add(45 * time.Minute), End: base.Add(2 * time.Hour)}})
	requireKind(t, err, KindConflict)

	// touching ranges do not overlap
	slots, err := svc.CreateSlots(ctx, teacher, []utils.Interval{
		{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
		{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)},
	})
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestCreateSlotsValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewAvailabilityService(f.db, f.log)
	ctx := context.Background()

	_, err := svc.CreateSlots(ctx, f.teacher(t, "tara", 100000), []utils.Interval{{Start: base, End: base}})
	requireKind(t, err, KindValidation)

	_, err = svc.CreateSlots(ctx, f.student(t, "sam"), []utils.Interval{{Start: base, End: base.Add(time.Hour)}})
	requireKind(t, err, KindForbidden)

	_, err = svc.CreateSlots(ctx, Principal{}, nil)
	requireKind(t, err, KindUnauthenticated)
}

func TestListSlots(t *testing.T) {
	f := newFixture(t)
	svc := NewAvailabilityService(f.db, f.log)
	teacher := f.teacher(t, "tara", 100000)
	student := f.student(t, "sam")
	ctx := context.Background()

	f.slot(t, teacher, base.Add(2*time.Hour), time.Hour)
	f.booking(t, student, teacher, base, time.Hour, models.BookingPending)

	all, err := svc.ListSlots(ctx, teacher.ProfileID, SlotQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].StartTime.Before(all[1].StartTime))

	free, err := svc.ListSlots(ctx, teacher.ProfileID, SlotQuery{OnlyFree: true})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.False(t, free[0].IsBooked)

	from := base.Add(90 * time.Minute)
	later, err := svc.ListSlots(ctx, teacher.ProfileID, SlotQuery{From: &from})
	require.NoError(t, err)
	assert.Len(t, later, 1)

	_, err = svc.ListSlots(ctx, student.UserID, SlotQuery{})
	requireKind(t, err, KindNotFound)
}

func TestDeleteSlot(t *testing.T) {
	f := newFixture(t)
	svc := NewAvailabilityService(f.db, f.log)
	teacher := f.teacher(t, "tara", 100000)
	other := f.teacher(t, "omar", 100000)
	ctx := context.Background()

	free := f.slot(t, teacher, base, time.Hour)
	booked := f.booking(t, f.student(t, "sam"), teacher, base.Add(2*time.Hour), time.Hour, models.BookingPending)

	requireKind(t, svc.DeleteSlot(ctx, other, free.ID), KindForbidden)
	requireKind(t, svc.DeleteSlot(ctx, teacher, *booked.AvailabilitySlotID), KindConflict)
	require.NoError(t, svc.DeleteSlot(ctx, teacher, free.ID))
	requireKind(t, svc.DeleteSlot(ctx, teacher, free.ID), KindNotFound)
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/teacherin/cache"
	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/database/dbtest"
	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/logging"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/payments"
	"github.com/anjiri1684/teacherin/services"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)

type sent struct {
	user    uuid.UUID
	kind    string
	payload map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, kind string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{userID, kind, payload})
}

type statusGateway map[string]string

func (g statusGateway) Name() string { return models.GatewayMidtrans }

func (g statusGateway) CreateTransaction(context.Context, payments.TransactionRequest) (*payments.Transaction, error) {
	return nil, errors.New("not used")
}

func (g statusGateway) GetStatus(_ context.Context, ref string) (*payments.Notification, error) {
	status, ok := g[ref]
	if !ok {
		return nil, errors.New("gateway timeout")
	}
	return &payments.Notification{OrderID: ref, TransactionStatus: status}, nil
}

func (g statusGateway) VerifySignature(*payments.Notification) bool { return true }

func newRunner(t *testing.T, db *gorm.DB, gw payments.Gateway, notifier services.Notifier) *Runner {
	t.Helper()
	log := logging.Nop()
	pub := events.NopPublisher{}
	return &Runner{
		Bookings: services.NewBookingService(db, pub, notifier, log),
		Sessions: services.NewSessionService(db, pub, notifier, log),
		Payments: services.NewPaymentService(db, gw, cache.NopLocker{}, pub, notifier, log),
		Notifier: notifier,
		Config:   config.JobsConfig{ReminderSpec: "*/5 * * * *", PaymentSyncSpec: "*/10 * * * *", PaymentSyncMinutes: 30},
		Log:      log,
		now:      func() time.Time { return now },
	}
}

type seed struct {
	student models.User
	teacher models.Teacher
}

func seedPeople(t *testing.T, db *gorm.DB) seed {
	t.Helper()
	student := models.User{FullName: "sam", Email: "sam@example.com", Password: "x", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(&student).Error)
	tu := models.User{FullName: "tara", Email: "tara@example.com", Password: "x", Role: models.RoleTeacher, IsActive: true}
	require.NoError(t, db.Create(&tu).Error)
	teacher := models.Teacher{UserID: tu.ID, PricePerHour: 100000}
	require.NoError(t, db.Create(&teacher).Error)
	return seed{student: student, teacher: teacher}
}

func (s seed) booking(t *testing.T, db *gorm.DB, start time.Time, status string) models.Booking {
	t.Helper()
	b := models.Booking{
		TeacherID:  s.teacher.ID,
		StudentID:  s.student.ID,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Status:     status,
		TotalPrice: 100000,
		Mode:       models.ModeOnline,
	}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func TestSendSessionReminders(t *testing.T) {
	db := dbtest.New(t)
	people := seedPeople(t, db)
	notifier := &recordingNotifier{}
	r := newRunner(t, db, statusGateway{}, notifier)

	due := people.booking(t, db, now.Add(62*time.Minute), models.BookingConfirmed)
	link := "https://meet.example/due"
	require.NoError(t, db.Create(&models.Session{BookingID: due.ID, MeetingLink: &link}).Error)
	people.booking(t, db, now.Add(64*time.Minute), models.BookingCancelled)
	people.booking(t, db, now.Add(3*time.Hour), models.BookingConfirmed)
	people.booking(t, db, now.Add(55*time.Minute), models.BookingPaid)

	require.NoError(t, r.SendSessionReminders(context.Background()))

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, people.student.ID, notifier.sent[0].user)
	assert.Equal(t, people.teacher.UserID, notifier.sent[1].user)
	for _, s := range notifier.sent {
		assert.Equal(t, services.NotifySessionReminder, s.kind)
		assert.Equal(t, due.ID.String(), s.payload["booking_id"])
		assert.Equal(t, link, s.payload["meeting_link"])
	}
}

func TestSyncPendingPayments(t *testing.T) {
	db := dbtest.New(t)
	people := seedPeople(t, db)
	gw := statusGateway{"OLD-PAID": payments.StatusSettlement}
	r := newRunner(t, db, gw, services.NopNotifier{})
	r.now = time.Now

	var n int
	payment := func(ref string, age time.Duration) models.Payment {
		n++
		b := people.booking(t, db, now.Add(time.Duration(n)*2*time.Hour), models.BookingPending)
		p := models.Payment{
			BookingID:  b.ID,
			Gateway:    models.GatewayMidtrans,
			GatewayRef: ref,
			Amount:     b.TotalPrice,
			Status:     models.PaymentPending,
			UpdatedAt:  time.Now().UTC().Add(-age),
		}
		require.NoError(t, db.Create(&p).Error)
		return p
	}
	paid := payment("OLD-PAID", time.Hour)
	lost := payment("OLD-LOST", time.Hour)
	fresh := payment("FRESH-ONE", time.Minute)

	require.NoError(t, r.SyncPendingPayments(context.Background()))

	status := func(id uuid.UUID) string {
		var got models.Payment
		require.NoError(t, db.First(&got, "id = ?", id).Error)
		return got.Status
	}
	assert.Equal(t, models.PaymentSuccess, status(paid.ID))
	var booking models.Booking
	require.NoError(t, db.First(&booking, "id = ?", paid.BookingID).Error)
	assert.Equal(t, models.BookingPaid, booking.Status)

	assert.Equal(t, models.PaymentPending, status(lost.ID), "gateway errors leave the payment alone")
	assert.Equal(t, models.PaymentPending, status(fresh.ID))
}

func TestSchedule(t *testing.T) {
	r := &Runner{Config: config.JobsConfig{ReminderSpec: "*/5 * * * *", PaymentSyncSpec: "@every 10m"}, Log: logging.Nop()}
	c := cron.New()
	require.NoError(t, r.Schedule(c))
	assert.Len(t, c.Entries(), 2)

	r.Config.PaymentSyncSpec = "whenever"
	assert.Error(t, r.Schedule(cron.New()))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/teacherin/database/dbtest"
	"github.com/anjiri1684/teacherin/logging"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/payments"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// base is a Monday morning far enough ahead that no fixture is in the past.
var base = time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

type published struct {
	subject string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishJSON(subject string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, payload: payload})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.subject
	}
	return out
}

type notice struct {
	userID  uuid.UUID
	kind    string
	payload map[string]any
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, kind string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{userID: userID, kind: kind, payload: payload})
}

func (n *recordingNotifier) kindsFor(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, x := range n.notices {
		if x.userID == userID {
			out = append(out, x.kind)
		}
	}
	return out
}

type fakeGateway struct {
	mu         sync.Mutex
	validSig   bool
	createErr  error
	status     *payments.Notification
	created    []payments.TransactionRequest
	statusHits int
}

func (g *fakeGateway) Name() string { return models.GatewayMidtrans }

func (g *fakeGateway) CreateTransaction(_ context.Context, req payments.TransactionRequest) (*payments.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &payments.Transaction{
		Token:       "snap-token",
		RedirectURL: "https://pay.example/" + req.OrderID,
		Reference:   req.OrderID,
	}, nil
}

func (g *fakeGateway) GetStatus(_ context.Context, reference string) (*payments.Notification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusHits++
	if g.status == nil {
		return nil, errors.New("status unavailable")
	}
	n := *g.status
	n.OrderID = reference
	return &n, nil
}

func (g *fakeGateway) VerifySignature(*payments.Notification) bool { return g.validSig }

type fixture struct {
	db        *gorm.DB
	publisher *recordingPublisher
	notifier  *recordingNotifier
	log       *zerolog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		db:        dbtest.New(t),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		log:       logging.Nop(),
	}
}

func (f *fixture) user(t *testing.T, name, role string) models.User {
	t.Helper()
	u := models.User{
		FullName: name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) student(t *testing.T, name string) Principal {
	t.Helper()
	u := f.user(t, name, models.RoleStudent)
	return Principal{UserID: u.ID, Role: u.Role, ProfileID: u.ID, Email: u.Email, FullName: u.FullName}
}

func (f *fixture) admin(t *testing.T) Principal {
	t.Helper()
	u := f.user(t, "admin", models.RoleAdmin)
	return Principal{UserID: u.ID, Role: u.Role, ProfileID: u.ID, Email: u.Email, FullName: u.FullName}
}

func (f *fixture) teacher(t *testing.T, name string, pricePerHour float64) Principal {
	t.Helper()
	u := f.user(t, name, models.RoleTeacher)
	teacher := models.Teacher{UserID: u.ID, PricePerHour: pricePerHour}
	require.NoError(t, f.db.Create(&teacher).Error)
	return Principal{UserID: u.ID, Role: u.Role, ProfileID: teacher.ID, Email: u.Email, FullName: u.FullName}
}

func (f *fixture) slot(t *testing.T, teacher Principal, start time.Time, d time.Duration) models.AvailabilitySlot {
	t.Helper()
	s := models.AvailabilitySlot{TeacherID: teacher.ProfileID, StartTime: start, EndTime: start.Add(d)}
	require.NoError(t, f.db.Create(&s).Error)
	return s
}

// booking inserts a booking directly, bypassing the lifecycle rules.
func (f *fixture) booking(t *testing.T, student, teacher Principal, start time.Time, d time.Duration, status string) models.Booking {
	t.Helper()
	s := f.slot(t, teacher, start, d)
	require.NoError(t, f.db.Model(&s).Update("is_booked", !isClosedBookingStatus(status)).Error)
	slotID := s.ID
	b := models.Booking{
		TeacherID:          teacher.ProfileID,
		StudentID:          student.UserID,
		AvailabilitySlotID: &slotID,
		StartTime:          start,
		EndTime:            start.Add(d),
		Status:             status,
		TotalPrice:         100000,
		Mode:               models.ModeOnline,
	}
	require.NoError(t, f.db.Create(&b).Error)
	return b
}

func (f *fixture) reload(t *testing.T, dst interface{}, id uuid.UUID) {
	t.Helper()
	require.NoError(t, f.db.First(dst, "id = ?", id).Error)
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind.String(), KindOf(err).String(), "unexpected error: %v", err)
}

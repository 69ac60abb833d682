package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	SubjectBookingCreated       = "booking.created"
	SubjectBookingStatusChanged = "booking.status_changed"
	SubjectPaymentReconciled    = "payment.reconciled"
	SubjectReviewChanged        = "review.changed"
)

type Publisher interface {
	PublishJSON(subject string, payload interface{}) error
}

// Envelope wraps every published payload.
type Envelope struct {
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type BookingStatusChanged struct {
	BookingID string `json:"booking_id"`
	TeacherID string `json:"teacher_id"`
	StudentID string `json:"student_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Actor     string `json:"actor"`
}

type PaymentReconciled struct {
	PaymentID     string `json:"payment_id"`
	BookingID     string `json:"booking_id"`
	GatewayRef    string `json:"gateway_ref"`
	PaymentStatus string `json:"payment_status"`
	BookingStatus string `json:"booking_status"`
}

type ReviewChanged struct {
	ReviewID    string  `json:"review_id"`
	TeacherID   string  `json:"teacher_id"`
	Operation   string  `json:"operation"`
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
}

type NatsPublisher struct {
	conn   *nats.Conn
	logger *zerolog.Logger
}

func NewNatsPublisher(natsURL string, logger *zerolog.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("teacherin-api"))
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{conn: nc, logger: logger}, nil
}

func (p *NatsPublisher) PublishJSON(subject string, payload interface{}) error {
	body, err := Marshal(subject, payload)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("marshal event")
		return err
	}

	if err := p.conn.Publish(subject, body); err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("publish event to nats")
		return err
	}

	p.logger.Debug().Str("subject", subject).Msg("published event")
	return nil
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// Marshal encodes payload in the Envelope sent on the wire.
func Marshal(subject string, payload interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		EventType:  subject,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(string, interface{}) error { return nil }

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/anjiri1684/teacherin/cache"
	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/metrics"
	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/payments"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const reconcileLockTTL = 30 * time.Second

type PaymentService struct {
	db      *gorm.DB
	gateway payments.Gateway
	locker  cache.Locker
	lifecycle
	log *zerolog.Logger
}

func NewPaymentService(db *gorm.DB, gateway payments.Gateway, locker cache.Locker, publisher events.Publisher, notifier Notifier, log *zerolog.Logger) *PaymentService {
	return &PaymentService{
		db:        db,
		gateway:   gateway,
		locker:    locker,
		lifecycle: lifecycle{db: db, publisher: publisher, notifier: notifier, log: log},
		log:       log,
	}
}

type InitiateResult struct {
	Payment     models.Payment `json:"payment"`
	RedirectURL string         `json:"redirect_url"`
	Token       string         `json:"token"`
}

// Initiate opens a gateway transaction for a PENDING booking. A booking
// keeps a single payment row; initiating again replaces its reference and
// a settlement on an earlier reference is still honored by Reconcile.
func (s *PaymentService) Initiate(ctx context.Context, p Principal, bookingID uuid.UUID) (*InitiateResult, error) {
	db := s.db.WithContext(ctx)

	var booking models.Booking
	err := db.Preload("Student").Preload("Teacher.User").First(&booking, "id = ?", bookingID).Error
	if err != nil {
		return nil, dbErr(err, "load booking", ErrBookingNotFound, nil)
	}
	if err := Authorize(p, ActPaymentInitiate, booking.StudentID); err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending {
		return nil, ErrBookingNotPending
	}

	var existing models.Payment
	if err := db.Where("booking_id = ?", booking.ID).Limit(1).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if existing.Status == models.PaymentSuccess {
		return nil, InvalidState("booking is already paid")
	}

	orderID := utils.BookingOrderID(booking.ID, time.Now())
	tx, err := s.gateway.CreateTransaction(ctx, payments.TransactionRequest{
		OrderID:       orderID,
		Amount:        int64(math.Round(booking.TotalPrice)),
		CustomerName:  booking.Student.FullName,
		CustomerEmail: booking.Student.Email,
		ItemID:        booking.ID.String(),
		ItemName:      "Lesson with " + booking.Teacher.User.FullName,
	})
	if err != nil {
		s.log.Error().Err(err).Str("booking_id", booking.ID.String()).Msg("gateway transaction failed")
		return nil, Upstream("payment gateway unavailable", err)
	}

	payment := existing
	payment.BookingID = booking.ID
	payment.Gateway = s.gateway.Name()
	payment.GatewayRef = tx.Reference
	payment.Amount = booking.TotalPrice
	payment.Status = models.PaymentPending
	payment.Payload = nil

	if payment.ID == uuid.Nil {
		err = db.Create(&payment).Error
	} else {
		err = db.Save(&payment).Error
	}
	if err != nil {
		return nil, dbErr(err, "save payment", nil, Conflict("payment reference already in use"))
	}

	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("gateway_ref", payment.GatewayRef).
		Float64("amount", payment.Amount).
		Msg("payment initiated")
	return &InitiateResult{Payment: payment, RedirectURL: tx.RedirectURL, Token: tx.Token}, nil
}

// Reconcile applies a gateway notification. Repeating a notification is
// harmless: a payment already in the mapped status only gets its payload
// refreshed.
func (s *PaymentService) Reconcile(ctx context.Context, n *payments.Notification) (*models.Payment, error) {
	if !s.gateway.VerifySignature(n) {
		metrics.IncWebhookRejected("signature")
		return nil, Unauthenticated("invalid notification signature")
	}
	outcome, err := payments.Classify(n)
	if err != nil {
		metrics.IncWebhookRejected("unknown_status")
		return nil, Validation("unrecognized transaction status %q", n.TransactionStatus)
	}
	return s.locked(ctx, n, outcome)
}

// Sync pulls the current gateway status of a payment and applies it.
func (s *PaymentService) Sync(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error; err != nil {
		return nil, dbErr(err, "load payment", ErrPaymentNotFound, nil)
	}
	if payment.Status != models.PaymentPending {
		return &payment, nil
	}

	n, err := s.gateway.GetStatus(ctx, payment.GatewayRef)
	if err != nil {
		return nil, Upstream("payment gateway status unavailable", err)
	}
	if n.OrderID == "" {
		n.OrderID = payment.GatewayRef
	}
	outcome, err := payments.Classify(n)
	if err != nil {
		return nil, Validation("unrecognized transaction status %q", n.TransactionStatus)
	}
	return s.locked(ctx, n, outcome)
}

func (s *PaymentService) locked(ctx context.Context, n *payments.Notification, outcome payments.Outcome) (*models.Payment, error) {
	key := "payment:" + n.OrderID
	ok, err := s.locker.Lock(ctx, key, reconcileLockTTL)
	if err != nil {
		return nil, Upstream("payment lock unavailable", err)
	}
	if !ok {
		return nil, Conflict("payment is being reconciled")
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("release payment lock")
		}
	}()
	return s.apply(ctx, n, outcome)
}

func (s *PaymentService) apply(ctx context.Context, n *payments.Notification, outcome payments.Outcome) (*models.Payment, error) {
	var (
		payment models.Payment
		booking models.Booking
		from    string
		moved   bool
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadNotifiedPayment(tx, n.OrderID, &payment); err != nil {
			return err
		}
		if payment.GatewayRef != n.OrderID {
			// A superseded attempt only counts once money has settled on it.
			if outcome != payments.OutcomeSuccess || payment.Status == models.PaymentSuccess {
				s.log.Info().
					Str("payment_id", payment.ID.String()).
					Str("gateway_ref", payment.GatewayRef).
					Str("order_id", n.OrderID).
					Msg("ignoring notification for superseded payment attempt")
				return nil
			}
			payment.GatewayRef = n.OrderID
		}
		if n.GrossAmount != "" {
			gross, err := strconv.ParseFloat(n.GrossAmount, 64)
			if err != nil || math.Abs(gross-payment.Amount) > 0.005 {
				return Validation("gross amount %s does not match payment amount", n.GrossAmount)
			}
		}

		payment.Payload = notificationPayload(n)
		target := payment.Status
		switch outcome {
		case payments.OutcomeSuccess:
			target = models.PaymentSuccess
		case payments.OutcomeFailed:
			target = models.PaymentFailed
		}
		if payment.Status == models.PaymentSuccess {
			target = models.PaymentSuccess
		}

		if target == payment.Status {
			return dbErr(tx.Model(&payment).Update("payload", payment.Payload).Error, "refresh payment payload", nil, nil)
		}

		changed = true
		payment.Status = target
		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", payment.BookingID).Error
		if err != nil {
			return dbErr(err, "load booking", ErrBookingNotFound, nil)
		}
		to := models.BookingPaid
		if target == models.PaymentFailed {
			to = models.BookingCancelled
		}
		from = booking.Status
		if from != to && !canTransition(from, to) {
			s.log.Warn().
				Str("booking_id", booking.ID.String()).
				Str("booking_status", from).
				Str("payment_status", target).
				Msg("payment outcome does not apply to booking in its current status")
			return nil
		}
		moved, err = transitionBooking(tx, &booking, to, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.IncPaymentReconciled(payment.Status)
		s.log.Info().
			Str("payment_id", payment.ID.String()).
			Str("gateway_ref", payment.GatewayRef).
			Str("status", payment.Status).
			Msg("payment reconciled")

		err := s.publisher.PublishJSON(events.SubjectPaymentReconciled, events.PaymentReconciled{
			PaymentID:     payment.ID.String(),
			BookingID:     payment.BookingID.String(),
			GatewayRef:    payment.GatewayRef,
			PaymentStatus: payment.Status,
			BookingStatus: booking.Status,
		})
		if err != nil {
			s.log.Warn().Err(err).Msg("payment reconciled event not published")
		}
	}
	if moved {
		s.statusChanged(ctx, &booking, from, uuid.Nil)
	}
	return &payment, nil
}

// loadNotifiedPayment locks the payment behind a gateway order id. Order
// ids of earlier attempts no longer match gateway_ref, so those fall back
// to the booking encoded in the order id.
func loadNotifiedPayment(tx *gorm.DB, orderID string, payment *models.Payment) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(payment, "gateway_ref = ?", orderID).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dbErr(err, "load payment", ErrPaymentNotFound, nil)
	}
	bookingID, ok := utils.ParseBookingOrderID(orderID)
	if !ok {
		return ErrPaymentNotFound
	}
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(payment, "booking_id = ?", bookingID).Error
	return dbErr(err, "load payment", ErrPaymentNotFound, nil)
}

func notificationPayload(n *payments.Notification) datatypes.JSON {
	if len(n.Raw) > 0 && json.Valid(n.Raw) {
		return datatypes.JSON(n.Raw)
	}
	body, err := json.Marshal(n)
	if err != nil {
		return nil
	}
	return datatypes.JSON(body)
}

func (s *PaymentService) Get(ctx context.Context, p Principal, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Preload("Booking").First(&payment, "id = ?", id).Error; err != nil {
		return nil, dbErr(err, "load payment", ErrPaymentNotFound, nil)
	}
	if err := Authorize(p, ActPaymentView, payment.Booking.StudentID, payment.Booking.TeacherID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Override lets an admin settle or fail a payment by hand. The booking
// follows as it would on a gateway notification, bypassing the
// transition table.
func (s *PaymentService) Override(ctx context.Context, p Principal, id uuid.UUID, status string) (*models.Payment, error) {
	if err := Authorize(p, ActPaymentOverride); err != nil {
		return nil, err
	}
	if status != models.PaymentSuccess && status != models.PaymentFailed {
		return nil, Validation("status must be %s or %s", models.PaymentSuccess, models.PaymentFailed)
	}

	var (
		payment models.Payment
		booking models.Booking
		from    string
		moved   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", id).Error; err != nil {
			return dbErr(err, "load payment", ErrPaymentNotFound, nil)
		}
		if payment.Status == status {
			return nil
		}
		payment.Status = status
		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", payment.BookingID).Error; err != nil {
			return dbErr(err, "load booking", ErrBookingNotFound, nil)
		}
		to := models.BookingPaid
		if status == models.PaymentFailed {
			to = models.BookingCancelled
		}
		from = booking.Status
		var err error
		moved, err = transitionBooking(tx, &booking, to, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("status", payment.Status).
		Str("admin", p.UserID.String()).
		Msg("payment overridden")
	if moved {
		s.statusChanged(ctx, &booking, from, p.UserID)
	}
	return &payment, nil
}

// StalePending returns PENDING payments not touched since before.
func (s *PaymentService) StalePending(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	var pending []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.PaymentPending, before.UTC()).
		Order("updated_at").
		Limit(limit).
		Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return pending, nil
}

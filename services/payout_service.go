package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var payoutStatuses = []string{models.PayoutRequested, models.PayoutProcessing, models.PayoutPaid, models.PayoutFailed}

type PayoutService struct {
	db       *gorm.DB
	settings *SettingsService
	log      *zerolog.Logger
}

func NewPayoutService(db *gorm.DB, settings *SettingsService, log *zerolog.Logger) *PayoutService {
	return &PayoutService{db: db, settings: settings, log: log}
}

type PayoutStats struct {
	TotalEarnings    float64 `json:"totalEarnings"`
	TotalPaidOut     float64 `json:"totalPaidOut"`
	PendingPayouts   float64 `json:"pendingPayouts"`
	AvailableBalance float64 `json:"availableBalance"`
}

func payoutStats(tx *gorm.DB, teacherID uuid.UUID) (PayoutStats, error) {
	var stats PayoutStats
	err := tx.Model(&models.Booking{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("teacher_id = ? AND status = ?", teacherID, models.BookingCompleted).
		Scan(&stats.TotalEarnings).Error
	if err != nil {
		return stats, fmt.Errorf("sum earnings: %w", err)
	}
	err = tx.Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("teacher_id = ? AND status = ?", teacherID, models.PayoutPaid).
		Scan(&stats.TotalPaidOut).Error
	if err != nil {
		return stats, fmt.Errorf("sum paid payouts: %w", err)
	}
	err = tx.Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("teacher_id = ? AND status IN ?", teacherID, []string{models.PayoutRequested, models.PayoutProcessing}).
		Scan(&stats.PendingPayouts).Error
	if err != nil {
		return stats, fmt.Errorf("sum pending payouts: %w", err)
	}
	stats.AvailableBalance = roundMoney(stats.TotalEarnings - stats.TotalPaidOut - stats.PendingPayouts)
	return stats, nil
}

func (s *PayoutService) Stats(ctx context.Context, p Principal) (PayoutStats, error) {
	if err := Authorize(p, ActPayoutRequest, p.ProfileID); err != nil {
		return PayoutStats{}, err
	}
	return payoutStats(s.db.WithContext(ctx), p.ProfileID)
}

type PayoutInput struct {
	Amount float64
	Notes  *string
}

func (s *PayoutService) RequestPayout(ctx context.Context, p Principal, in PayoutInput) (*models.Payout, error) {
	if err := Authorize(p, ActPayoutRequest, p.ProfileID); err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, Validation("amount must be greater than zero")
	}
	minAmount, err := s.settings.minPayout(ctx)
	if err != nil {
		return nil, err
	}
	if in.Amount < minAmount {
		return nil, Validation("amount must be at least %.2f", minAmount)
	}

	var payout models.Payout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serialise concurrent requests of the same teacher
		var teacher models.Teacher
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&teacher, "id = ?", p.ProfileID).Error; err != nil {
			return dbErr(err, "load teacher", ErrTeacherNotFound, nil)
		}
		stats, err := payoutStats(tx, teacher.ID)
		if err != nil {
			return err
		}
		if in.Amount > stats.AvailableBalance {
			return Validation("amount exceeds available balance of %.2f", stats.AvailableBalance)
		}

		payout = models.Payout{
			TeacherID:   teacher.ID,
			Amount:      roundMoney(in.Amount),
			Status:      models.PayoutRequested,
			Notes:       in.Notes,
			RequestedAt: time.Now().UTC(),
		}
		return dbErr(tx.Create(&payout).Error, "create payout", nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("payout_id", payout.ID.String()).Float64("amount", payout.Amount).Msg("payout requested")
	return &payout, nil
}

type PayoutQuery struct {
	Status string
	Page   utils.PageRequest
}

func (s *PayoutService) ListPayouts(ctx context.Context, p Principal, q PayoutQuery) (utils.Page[models.Payout], error) {
	var page utils.Page[models.Payout]
	if q.Status != "" && !contains(payoutStatuses, q.Status) {
		return page, Validation("unknown payout status %q", q.Status)
	}

	var filter Filter
	switch {
	case p.UserID == uuid.Nil:
		return page, ErrUnauthenticated
	case p.IsAdmin():
	case p.IsTeacher():
		filter = filter.When(true, where("teacher_id = ?", p.ProfileID))
	default:
		return page, ErrForbidden
	}
	filter = filter.When(q.Status != "", where("status = ?", q.Status))

	db := s.db.WithContext(ctx)
	var total int64
	if err := filter.Scope(db.Model(&models.Payout{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count payouts: %w", err)
	}
	var payouts []models.Payout
	err := filter.Scope(db.Model(&models.Payout{})).
		Preload("Teacher.User").
		Order("requested_at DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&payouts).Error
	if err != nil {
		return page, fmt.Errorf("list payouts: %w", err)
	}
	return utils.NewPage(payouts, q.Page, total), nil
}

func (s *PayoutService) UpdateStatus(ctx context.Context, p Principal, id uuid.UUID, status string, notes *string) (*models.Payout, error) {
	if err := Authorize(p, ActPayoutProcess); err != nil {
		return nil, err
	}
	if status != models.PayoutProcessing && status != models.PayoutPaid && status != models.PayoutFailed {
		return nil, Validation("status must be PROCESSING, PAID or FAILED")
	}

	var payout models.Payout
	db := s.db.WithContext(ctx)
	if err := db.First(&payout, "id = ?", id).Error; err != nil {
		return nil, dbErr(err, "load payout", ErrPayoutNotFound, nil)
	}
	if payout.Status == models.PayoutPaid || payout.Status == models.PayoutFailed {
		return nil, InvalidState("payout is already " + payout.Status)
	}

	payout.Status = status
	if notes != nil {
		payout.Notes = notes
	}
	if status == models.PayoutPaid || status == models.PayoutFailed {
		now := time.Now().UTC()
		payout.ProcessedAt = &now
	}
	if err := db.Omit("Teacher").Save(&payout).Error; err != nil {
		return nil, fmt.Errorf("save payout: %w", err)
	}

	s.log.Info().Str("payout_id", payout.ID.String()).Str("status", status).Msg("payout updated")
	return &payout, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

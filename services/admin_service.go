package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type AdminService struct {
	db  *gorm.DB
	log *zerolog.Logger
}

func NewAdminService(db *gorm.DB, log *zerolog.Logger) *AdminService {
	return &AdminService{db: db, log: log}
}

type UserQuery struct {
	Role   string
	Search string
	Page   utils.PageRequest
}

func (s *AdminService) ListUsers(ctx context.Context, p Principal, q UserQuery) (utils.Page[models.User], error) {
	var page utils.Page[models.User]
	if err := Authorize(p, ActAdmin); err != nil {
		return page, err
	}
	if q.Role != "" && !contains([]string{models.RoleStudent, models.RoleTeacher, models.RoleAdmin}, q.Role) {
		return page, Validation("unknown role %q", q.Role)
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	filter := Filter{}.
		When(q.Role != "", where("role = ?", q.Role)).
		When(search != "", where("(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?)", "%"+search+"%", "%"+search+"%"))

	db := s.db.WithContext(ctx)
	var total int64
	if err := filter.Scope(db.Model(&models.User{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count users: %w", err)
	}
	var users []models.User
	err := filter.Scope(db.Model(&models.User{})).
		Order("created_at DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&users).Error
	if err != nil {
		return page, fmt.Errorf("list users: %w", err)
	}
	return utils.NewPage(users, q.Page, total), nil
}

func (s *AdminService) ToggleUserStatus(ctx context.Context, p Principal, id uuid.UUID) (*models.User, error) {
	if err := Authorize(p, ActAdmin); err != nil {
		return nil, err
	}
	if id == p.UserID {
		return nil, Validation("admins cannot deactivate themselves")
	}

	var user models.User
	db := s.db.WithContext(ctx)
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, dbErr(err, "load user", ErrUserNotFound, nil)
	}
	user.IsActive = !user.IsActive
	if err := db.Model(&user).Update("is_active", user.IsActive).Error; err != nil {
		return nil, fmt.Errorf("toggle user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Bool("active", user.IsActive).Msg("user status toggled")
	return &user, nil
}

// DeleteUser removes an account that has no booking history. Users with
// history are deactivated instead.
func (s *AdminService) DeleteUser(ctx context.Context, p Principal, id uuid.UUID) error {
	if err := Authorize(p, ActAdmin); err != nil {
		return err
	}
	if id == p.UserID {
		return Validation("admins cannot delete themselves")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return dbErr(err, "load user", ErrUserNotFound, nil)
		}

		teacherID, err := firstID(tx.Model(&models.Teacher{}).Where("user_id = ?", user.ID), "id")
		if err != nil {
			return fmt.Errorf("resolve teacher: %w", err)
		}

		var history int64
		err = tx.Model(&models.Booking{}).
			Where("student_id = ? OR teacher_id = ?", user.ID, teacherID).
			Count(&history).Error
		if err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if history > 0 {
			return Conflict("user has bookings, deactivate the account instead")
		}

		if teacherID != uuid.Nil {
			if err := tx.Exec("DELETE FROM teacher_skills WHERE teacher_id = ?", teacherID).Error; err != nil {
				return fmt.Errorf("delete teacher skills: %w", err)
			}
			if err := tx.Delete(&models.AvailabilitySlot{}, "teacher_id = ?", teacherID).Error; err != nil {
				return fmt.Errorf("delete slots: %w", err)
			}
			if err := tx.Delete(&models.Teacher{}, "id = ?", teacherID).Error; err != nil {
				return fmt.Errorf("delete teacher: %w", err)
			}
		}
		if err := tx.Delete(&models.Favorite{}, "user_id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("delete favorites: %w", err)
		}
		if err := tx.Delete(&models.Notification{}, "user_id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		s.log.Info().Str("user_id", user.ID.String()).Msg("user deleted")
		return nil
	})
}

type TransactionQuery struct {
	Status  string
	Gateway string
	From    *time.Time
	To      *time.Time
	Page    utils.PageRequest
}

func (q TransactionQuery) filter() (Filter, error) {
	if q.Status != "" && !contains([]string{models.PaymentPending, models.PaymentSuccess, models.PaymentFailed}, q.Status) {
		return nil, Validation("unknown payment status %q", q.Status)
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, Validation("date range end is before its start")
	}
	return Filter{}.
		When(q.Status != "", where("status = ?", q.Status)).
		When(q.Gateway != "", where("gateway = ?", strings.ToUpper(q.Gateway))).
		When(q.From != nil, where("created_at >= ?", utcOrZero(q.From))).
		When(q.To != nil, where("created_at <= ?", utcOrZero(q.To))), nil
}

func (s *AdminService) ListTransactions(ctx context.Context, p Principal, q TransactionQuery) (utils.Page[models.Payment], error) {
	var page utils.Page[models.Payment]
	if err := Authorize(p, ActAdmin); err != nil {
		return page, err
	}
	filter, err := q.filter()
	if err != nil {
		return page, err
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := filter.Scope(db.Model(&models.Payment{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count transactions: %w", err)
	}
	var rows []models.Payment
	err = filter.Scope(db.Model(&models.Payment{})).
		Omit("payload").
		Preload("Booking.Student").
		Order("created_at DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&rows).Error
	if err != nil {
		return page, fmt.Errorf("list transactions: %w", err)
	}
	return utils.NewPage(rows, q.Page, total), nil
}

type TransactionStats struct {
	TotalTransactions      int64   `json:"totalTransactions"`
	SuccessfulTransactions int64   `json:"successfulTransactions"`
	FailedTransactions     int64   `json:"failedTransactions"`
	TotalRevenue           float64 `json:"totalRevenue"`
}

func (s *AdminService) TransactionStats(ctx context.Context, p Principal) (TransactionStats, error) {
	var stats TransactionStats
	if err := Authorize(p, ActAdmin); err != nil {
		return stats, err
	}

	var rows []struct {
		Status string
		Count  int64
		Amount float64
	}
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return stats, fmt.Errorf("aggregate transactions: %w", err)
	}
	for _, r := range rows {
		stats.TotalTransactions += r.Count
		switch r.Status {
		case models.PaymentSuccess:
			stats.SuccessfulTransactions = r.Count
			stats.TotalRevenue = roundMoney(r.Amount)
		case models.PaymentFailed:
			stats.FailedTransactions = r.Count
		}
	}
	return stats, nil
}

// exportRows loads every transaction matching q for a report, oldest first.
func (s *AdminService) exportRows(ctx context.Context, q TransactionQuery) ([]models.Payment, error) {
	filter, err := q.filter()
	if err != nil {
		return nil, err
	}
	var rows []models.Payment
	err = filter.Scope(s.db.WithContext(ctx).Model(&models.Payment{})).
		Omit("payload").
		Preload("Booking.Student").
		Preload("Booking.Teacher.User").
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return rows, nil
}

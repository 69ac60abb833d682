package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"gorm.io/gorm"
)

const dashboardListSize = 5

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type StudentDashboard struct {
	UpcomingBookings []models.Booking `json:"upcomingBookings"`
	RecentBookings   []models.Booking `json:"recentBookings"`
	RecentOrders     []models.Order   `json:"recentOrders"`
	RecentReviews    []models.Review  `json:"recentReviews"`
	Stats            struct {
		TotalBookings     int64   `json:"totalBookings"`
		CompletedSessions int64   `json:"completedSessions"`
		TotalSpent        float64 `json:"totalSpent"`
	} `json:"stats"`
}

func (s *DashboardService) Student(ctx context.Context, p Principal) (*StudentDashboard, error) {
	if !p.IsStudent() {
		return nil, ErrForbidden
	}
	db := s.db.WithContext(ctx)
	now := time.Now().UTC()
	out := &StudentDashboard{}

	steps := []error{
		db.Preload("Teacher.User").
			Where("student_id = ? AND start_time >= ? AND status IN ?", p.UserID, now,
				[]string{models.BookingPending, models.BookingPaid, models.BookingConfirmed}).
			Order("start_time").Limit(dashboardListSize).Find(&out.UpcomingBookings).Error,
		db.Preload("Teacher.User").Where("student_id = ?", p.UserID).
			Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentBookings).Error,
		db.Preload("Material").Where("buyer_id = ?", p.UserID).
			Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentOrders).Error,
		db.Joins("JOIN bookings ON bookings.id = reviews.booking_id").
			Where("bookings.student_id = ?", p.UserID).
			Order("reviews.created_at DESC").Limit(dashboardListSize).Find(&out.RecentReviews).Error,
		db.Model(&models.Booking{}).Where("student_id = ?", p.UserID).Count(&out.Stats.TotalBookings).Error,
		db.Model(&models.Booking{}).Where("student_id = ? AND status = ?", p.UserID, models.BookingCompleted).
			Count(&out.Stats.CompletedSessions).Error,
		db.Model(&models.Payment{}).Select("COALESCE(SUM(payments.amount), 0)").
			Joins("JOIN bookings ON bookings.id = payments.booking_id").
			Where("bookings.student_id = ? AND payments.status = ?", p.UserID, models.PaymentSuccess).
			Scan(&out.Stats.TotalSpent).Error,
	}
	if err := firstErr(steps); err != nil {
		return nil, fmt.Errorf("student dashboard: %w", err)
	}
	return out, nil
}

type TeacherDashboard struct {
	UpcomingBookings     []models.Booking          `json:"upcomingBookings"`
	RecentBookings       []models.Booking          `json:"recentBookings"`
	RecentReviews        []models.Review           `json:"recentReviews"`
	RecentMaterials      []models.Material         `json:"recentMaterials"`
	UpcomingAvailability []models.AvailabilitySlot `json:"upcomingAvailability"`
	Stats                struct {
		TotalBookings     int64   `json:"totalBookings"`
		CompletedSessions int64   `json:"completedSessions"`
		TotalEarnings     float64 `json:"totalEarnings"`
		AvgRating         float64 `json:"avgRating"`
	} `json:"stats"`
}

func (s *DashboardService) Teacher(ctx context.Context, p Principal) (*TeacherDashboard, error) {
	if !p.IsTeacher() {
		return nil, ErrForbidden
	}
	db := s.db.WithContext(ctx)

	var teacher models.Teacher
	if err := db.First(&teacher, "id = ?", p.ProfileID).Error; err != nil {
		return nil, dbErr(err, "load teacher", ErrTeacherNotFound, nil)
	}

	now := time.Now().UTC()
	out := &TeacherDashboard{}
	out.Stats.AvgRating = teacher.AvgRating

	steps := []error{
		db.Preload("Student").
			Where("teacher_id = ? AND start_time >= ? AND status IN ?", teacher.ID, now,
				[]string{models.BookingPending, models.BookingPaid, models.BookingConfirmed}).
			Order("start_time").Limit(dashboardListSize).Find(&out.UpcomingBookings).Error,
		db.Preload("Student").Where("teacher_id = ?", teacher.ID).
			Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentBookings).Error,
		db.Joins("JOIN bookings ON bookings.id = reviews.booking_id").
			Where("bookings.teacher_id = ?", teacher.ID).
			Order("reviews.created_at DESC").Limit(dashboardListSize).Find(&out.RecentReviews).Error,
		db.Where("teacher_id = ?", teacher.ID).
			Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentMaterials).Error,
		db.Where("teacher_id = ? AND start_time >= ? AND is_booked = ?", teacher.ID, now, false).
			Order("start_time").Limit(dashboardListSize).Find(&out.UpcomingAvailability).Error,
		db.Model(&models.Booking{}).Where("teacher_id = ?", teacher.ID).Count(&out.Stats.TotalBookings).Error,
		db.Model(&models.Booking{}).Where("teacher_id = ? AND status = ?", teacher.ID, models.BookingCompleted).
			Count(&out.Stats.CompletedSessions).Error,
		db.Model(&models.Booking{}).Select("COALESCE(SUM(total_price), 0)").
			Where("teacher_id = ? AND status = ?", teacher.ID, models.BookingCompleted).
			Scan(&out.Stats.TotalEarnings).Error,
	}
	if err := firstErr(steps); err != nil {
		return nil, fmt.Errorf("teacher dashboard: %w", err)
	}
	return out, nil
}

type AdminDashboard struct {
	RecentUsers      []models.User    `json:"recentUsers"`
	RecentBookings   []models.Booking `json:"recentBookings"`
	RecentPayments   []models.Payment `json:"recentPayments"`
	UsersByRole      map[string]int64 `json:"usersByRole"`
	BookingsByStatus map[string]int64 `json:"bookingsByStatus"`
	Stats            struct {
		TotalUsers    int64   `json:"totalUsers"`
		TotalTeachers int64   `json:"totalTeachers"`
		TotalBookings int64   `json:"totalBookings"`
		TotalRevenue  float64 `json:"totalRevenue"`
	} `json:"stats"`
}

type groupCount struct {
	Name  string
	Count int64
}

func (s *DashboardService) Admin(ctx context.Context, p Principal) (*AdminDashboard, error) {
	if err := Authorize(p, ActAdmin); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := &AdminDashboard{}

	var roles, statuses []groupCount
	steps := []error{
		db.Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentUsers).Error,
		db.Preload("Student").Preload("Teacher.User").
			Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentBookings).Error,
		db.Omit("payload").Order("created_at DESC").Limit(dashboardListSize).Find(&out.RecentPayments).Error,
		db.Model(&models.User{}).Select("role AS name, COUNT(*) AS count").Group("role").Scan(&roles).Error,
		db.Model(&models.Booking{}).Select("status AS name, COUNT(*) AS count").Group("status").Scan(&statuses).Error,
		db.Model(&models.Payment{}).Select("COALESCE(SUM(amount), 0)").
			Where("status = ?", models.PaymentSuccess).Scan(&out.Stats.TotalRevenue).Error,
	}
	if err := firstErr(steps); err != nil {
		return nil, fmt.Errorf("admin dashboard: %w", err)
	}

	out.UsersByRole = make(map[string]int64, len(roles))
	for _, r := range roles {
		out.UsersByRole[r.Name] = r.Count
		out.Stats.TotalUsers += r.Count
	}
	out.Stats.TotalTeachers = out.UsersByRole[models.RoleTeacher]
	out.BookingsByStatus = make(map[string]int64, len(statuses))
	for _, st := range statuses {
		out.BookingsByStatus[st.Name] = st.Count
		out.Stats.TotalBookings += st.Count
	}
	return out, nil
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

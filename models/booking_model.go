package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingPending   = "PENDING"
	BookingPaid      = "PAID"
	BookingConfirmed = "CONFIRMED"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
	BookingRefunded  = "REFUNDED"

	ModeOnline  = "ONLINE"
	ModeOffline = "OFFLINE"
)

var BookingStatuses = []string{
	BookingPending, BookingPaid, BookingConfirmed,
	BookingCompleted, BookingCancelled, BookingRefunded,
}

type Booking struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"teacher_id"`
	StudentID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	AvailabilitySlotID *uuid.UUID `gorm:"type:uuid" json:"availability_slot_id"`
	StartTime          time.Time  `gorm:"not null" json:"start_time"`
	EndTime            time.Time  `gorm:"not null" json:"end_time"`
	Status             string     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	TotalPrice         float64    `gorm:"type:numeric(12,2);not null" json:"total_price"`
	Mode               string     `gorm:"size:10;not null" json:"mode"`
	Notes              *string    `gorm:"type:text" json:"notes"`

	Teacher Teacher `gorm:"foreignkey:TeacherID" json:"teacher,omitempty"`
	Student User    `gorm:"foreignkey:StudentID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}

type Session struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BookingID   uuid.UUID  `gorm:"type:uuid;not null;unique" json:"booking_id"`
	MeetingLink *string    `gorm:"size:255" json:"meeting_link"`
	Location    *string    `gorm:"size:255" json:"location"`
	StartedAt   *time.Time `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`

	Booking Booking `gorm:"foreignkey:BookingID" json:"booking,omitempty"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

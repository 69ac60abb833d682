package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvailabilitySlot struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_slot_teacher_start" json:"teacher_id"`
	StartTime time.Time `gorm:"not null;uniqueIndex:idx_slot_teacher_start" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	IsBooked  bool      `gorm:"not null;default:false" json:"is_booked"`
}

func (s *AvailabilitySlot) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

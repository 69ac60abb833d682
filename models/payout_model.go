package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PayoutRequested  = "REQUESTED"
	PayoutProcessing = "PROCESSING"
	PayoutPaid       = "PAID"
	PayoutFailed     = "FAILED"
)

type Payout struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Amount      float64    `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status      string     `gorm:"size:20;not null;default:'REQUESTED'" json:"status"`
	Notes       *string    `gorm:"type:text" json:"notes"`
	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at"`

	Teacher Teacher `gorm:"foreignkey:TeacherID" json:"teacher,omitempty"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	if p.RequestedAt.IsZero() {
		p.RequestedAt = time.Now()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentPending = "PENDING"
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"

	GatewayMidtrans = "MIDTRANS"
)

type Payment struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	BookingID  uuid.UUID      `gorm:"type:uuid;not null;unique" json:"booking_id"`
	Gateway    string         `gorm:"size:20;not null" json:"gateway"`
	GatewayRef string         `gorm:"size:255;not null;unique" json:"gateway_ref"`
	Amount     float64        `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status     string         `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	Payload    datatypes.JSON `json:"payload,omitempty"`

	Booking Booking `gorm:"foreignkey:BookingID" json:"booking,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

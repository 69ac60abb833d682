package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderPending   = "PENDING"
	OrderPaid      = "PAID"
	OrderCancelled = "CANCELLED"
	OrderRefunded  = "REFUNDED"
)

type Material struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID   uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	FileKey     *string   `gorm:"size:512" json:"file_key"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

type Order struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BuyerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"buyer_id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	Amount     float64   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status     string    `gorm:"size:20;not null;default:'PENDING'" json:"status"`

	Material Material `gorm:"foreignkey:MaterialID" json:"material,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

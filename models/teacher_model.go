package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Teacher struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`
	ExperienceYears int       `gorm:"not null;default:0" json:"experience_years"`
	PricePerHour    float64   `gorm:"type:numeric(12,2);not null;default:0" json:"price_per_hour"`
	AvgRating       float64   `gorm:"type:numeric(3,2);not null;default:0" json:"avg_rating"`
	ReviewCount     int       `gorm:"not null;default:0" json:"review_count"`
	IsVerified      bool      `gorm:"not null;default:false" json:"is_verified"`

	User   User     `gorm:"foreignkey:UserID" json:"user"`
	Skills []*Skill `gorm:"many2many:teacher_skills;" json:"skills,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (t *Teacher) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

type Skill struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"size:100;not null;unique" json:"name"`
}

func (s *Skill) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type Favorite struct {
	UserID    uuid.UUID `gorm:"type:uuid;primary_key" json:"user_id"`
	TeacherID uuid.UUID `gorm:"type:uuid;primary_key" json:"teacher_id"`
	Teacher   Teacher   `gorm:"foreignkey:TeacherID" json:"teacher,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	FullName    string     `gorm:"size:255;not null" json:"full_name"`
	Email       string     `gorm:"size:255;not null;unique" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	Role        string     `gorm:"size:20;not null;default:'STUDENT'" json:"role"`
	Bio         *string    `gorm:"type:text" json:"bio"`
	AvatarURL   *string    `gorm:"size:255" json:"avatar_url"`
	City        *string    `gorm:"size:100" json:"city"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	OnboardedAt *time.Time `json:"onboarded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

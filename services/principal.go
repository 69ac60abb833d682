package services

import (
	"github.com/anjiri1684/teacherin/models"
	"github.com/google/uuid"
)

// Principal is the authenticated caller, resolved once per request from
// the token claims and the stored user. ProfileID is the teacher id for
// teachers and the user id for everyone else.
type Principal struct {
	UserID    uuid.UUID
	Role      string
	ProfileID uuid.UUID
	Email     string
	FullName  string
}

func (p Principal) IsAdmin() bool   { return p.Role == models.RoleAdmin }
func (p Principal) IsTeacher() bool { return p.Role == models.RoleTeacher }
func (p Principal) IsStudent() bool { return p.Role == models.RoleStudent }

// Owns reports whether the resource owner id is the caller's profile.
func (p Principal) Owns(ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && ownerID == p.ProfileID
}

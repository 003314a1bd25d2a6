package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

var Roles = []string{RoleStudent, RoleInstructor, RoleAdmin}

func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// User is a plain record; hashing and normalisation happen in the service
// layer before it is persisted.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"              json:"id"`
	Name         string    `gorm:"size:100;not null"                 json:"name"`
	Email        string    `gorm:"size:320;uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                          json:"-"`
	Role         string    `gorm:"size:20;not null;default:student"  json:"role"`
	RefreshToken *string   `gorm:"type:text"                         json:"-"`
	CreatedAt    time.Time `gorm:"not null"                          json:"createdAt"`
}

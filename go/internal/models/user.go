package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole defines the authorization role of a principal.
type UserRole string

const (
	UserRoleAdmin   UserRole = "ADMIN"
	UserRoleCaptain UserRole = "CAPTAIN"
	UserRoleMember  UserRole = "MEMBER"
)

// User represents a clan member in the system
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

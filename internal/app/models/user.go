package models

import "time"

// RoleType defines the user role type
type RoleType string

const (
	RoleTeacher RoleType = "teacher"
	RoleStudent RoleType = "student"
)

// Valid reports whether r is a known role
func (r RoleType) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// User is an account known to the identity provider. Credentials live outside this service.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	Role      RoleType  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

package dto

import (
	"time"

	"github.com/yigit/classjournal/internal/app/models"
)

// UserResponse is the authenticated user's own profile
type UserResponse struct {
	ID        int64           `json:"id" example:"1"`
	Username  string          `json:"username" example:"teacher1"`
	Email     *string         `json:"email,omitempty" example:"teacher1@school.example"`
	Role      models.RoleType `json:"role" example:"teacher"`
	CreatedAt time.Time       `json:"createdAt"`
}

// StudentListItem is one taggable student
type StudentListItem struct {
	ID       int64  `json:"id" example:"2"`
	Username string `json:"username" example:"student1"`
}

// NewUserResponse maps a user to its profile response
func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

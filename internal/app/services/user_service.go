package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// UserService exposes the read-only user directory
type UserService interface {
	GetCurrentUser(ctx context.Context, userID int64) (*dto.UserResponse, error)
	ListStudents(ctx context.Context) ([]dto.StudentListItem, error)
}

// userStore is the part of the user repository the directory reads from
type userStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListStudents(ctx context.Context) ([]models.UserSummary, error)
}

type userServiceImpl struct {
	users userStore
}

// NewUserService creates a new UserService
func NewUserService(users userStore) UserService {
	return &userServiceImpl{users: users}
}

// GetCurrentUser returns the profile of the authenticated user
func (s *userServiceImpl) GetCurrentUser(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewCustomError(apperrors.ErrResourceNotFound, "user not found")
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	resp := dto.NewUserResponse(*user)
	return &resp, nil
}

// ListStudents returns every student id and username, ordered by username
func (s *userServiceImpl) ListStudents(ctx context.Context) ([]dto.StudentListItem, error) {
	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	items := make([]dto.StudentListItem, 0, len(students))
	for _, st := range students {
		items = append(items, dto.StudentListItem{ID: st.ID, Username: st.Username})
	}
	return items, nil
}

package auth

import (
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

// Requester is the identity a journal read or write is performed for. It is
// either a Teacher or a Student; code switches on the concrete type once.
type Requester interface {
	UserID() int64
	Role() models.RoleType
	requester()
}

// Teacher is a requester that owns journals
type Teacher struct{ ID int64 }

// Student is a requester that is tagged in journals
type Student struct{ ID int64 }

func (t Teacher) UserID() int64         { return t.ID }
func (t Teacher) Role() models.RoleType { return models.RoleTeacher }
func (Teacher) requester()              {}

func (s Student) UserID() int64         { return s.ID }
func (s Student) Role() models.RoleType { return models.RoleStudent }
func (Student) requester()              {}

// NewRequester builds a requester from the identity the auth middleware resolved
func NewRequester(userID int64, role models.RoleType) (Requester, error) {
	if userID <= 0 {
		return nil, apperrors.ErrUnauthorized
	}
	switch role {
	case models.RoleTeacher:
		return Teacher{ID: userID}, nil
	case models.RoleStudent:
		return Student{ID: userID}, nil
	default:
		return nil, apperrors.ErrUnauthorized
	}
}

// AsTeacher returns the teacher behind r, or ErrPermissionDenied for any other role
func AsTeacher(r Requester) (Teacher, error) {
	if t, ok := r.(Teacher); ok {
		return t, nil
	}
	return Teacher{}, apperrors.ErrPermissionDenied
}

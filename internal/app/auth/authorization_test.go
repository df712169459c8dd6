package auth

import (
	"errors"
	"testing"

	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

func TestNewRequester(t *testing.T) {
	r, err := NewRequester(3, models.RoleTeacher)
	if err != nil {
		t.Fatalf("teacher: %v", err)
	}
	if _, ok := r.(Teacher); !ok || r.UserID() != 3 {
		t.Errorf("expected Teacher{3}, got %#v", r)
	}

	r, err = NewRequester(4, models.RoleStudent)
	if err != nil {
		t.Fatalf("student: %v", err)
	}
	if _, ok := r.(Student); !ok || r.Role() != models.RoleStudent {
		t.Errorf("expected Student{4}, got %#v", r)
	}

	if _, err := NewRequester(5, "admin"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("unknown role: got %v", err)
	}
	if _, err := NewRequester(0, models.RoleTeacher); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("zero id: got %v", err)
	}
}

func TestAsTeacher(t *testing.T) {
	if got, err := AsTeacher(Teacher{ID: 9}); err != nil || got.ID != 9 {
		t.Errorf("AsTeacher(teacher) = %v, %v", got, err)
	}
	if _, err := AsTeacher(Student{ID: 9}); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("AsTeacher(student): got %v", err)
	}
}

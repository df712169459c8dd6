package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

type fakeUserStore struct {
	users    map[int64]models.User
	students []models.UserSummary
	err      error
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrResourceNotFound
	}
	return &u, nil
}

func (f *fakeUserStore) ListStudents(context.Context) ([]models.UserSummary, error) {
	return f.students, f.err
}

func TestUserService_GetCurrentUser(t *testing.T) {
	email := "teacher1@school.example"
	svc := NewUserService(&fakeUserStore{users: map[int64]models.User{
		1: {ID: 1, Username: "teacher1", Email: &email, Role: models.RoleTeacher},
	}})

	got, err := svc.GetCurrentUser(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "teacher1" || got.Role != models.RoleTeacher || got.Email == nil || *got.Email != email {
		t.Errorf("got %+v", got)
	}

	if _, err := svc.GetCurrentUser(context.Background(), 9); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("missing user: %v", err)
	}
}

func TestUserService_ListStudents(t *testing.T) {
	svc := NewUserService(&fakeUserStore{students: []models.UserSummary{
		{ID: 2, Username: "student1", Role: models.RoleStudent},
		{ID: 3, Username: "student2", Role: models.RoleStudent},
	}})

	got, err := svc.ListStudents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].Username != "student2" {
		t.Errorf("got %+v", got)
	}

	empty, err := NewUserService(&fakeUserStore{}).ListStudents(context.Background())
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("no students should give an empty list, got %v %v", empty, err)
	}

	boom := errors.New("boom")
	if _, err := NewUserService(&fakeUserStore{err: boom}).ListStudents(context.Background()); !errors.Is(err, boom) {
		t.Errorf("store error not propagated: %v", err)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

type fakeUserService struct {
	userID int64
	listed bool
	err    error
}

func (f *fakeUserService) GetCurrentUser(_ context.Context, userID int64) (*dto.UserResponse, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.UserResponse{ID: userID, Username: "teacher1", Role: models.RoleTeacher}, nil
}

func (f *fakeUserService) ListStudents(context.Context) ([]dto.StudentListItem, error) {
	f.listed = true
	if f.err != nil {
		return nil, f.err
	}
	return []dto.StudentListItem{{ID: 2, Username: "student1"}, {ID: 3, Username: "student2"}}, nil
}

func newUserRouter(userID int64, role models.RoleType, us *fakeUserService) *gin.Engine {
	r := gin.New()
	r.Use(as(userID, role))
	uc := NewUserController(us)
	r.GET("/users/me", uc.GetCurrentUser)
	r.GET("/users/students", uc.ListStudents)
	return r
}

func TestGetCurrentUser(t *testing.T) {
	us := &fakeUserService{}
	r := newUserRouter(1, models.RoleTeacher, us)

	w := do(r, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if us.userID != 1 {
		t.Errorf("looked up user %d, want the caller", us.userID)
	}
}

func TestGetCurrentUser_NotFound(t *testing.T) {
	us := &fakeUserService{err: apperrors.NewCustomError(apperrors.ErrResourceNotFound, "user not found")}
	r := newUserRouter(5, models.RoleStudent, us)

	if w := do(r, httptest.NewRequest(http.MethodGet, "/users/me", nil)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListStudents(t *testing.T) {
	us := &fakeUserService{}
	r := newUserRouter(1, models.RoleTeacher, us)

	w := do(r, httptest.NewRequest(http.MethodGet, "/users/students", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) != 2 || body.Data[0]["username"] != "student1" {
		t.Fatalf("data = %v", body.Data)
	}
	if len(body.Data[0]) != 2 {
		t.Errorf("student entries should carry only id and username, got %v", body.Data[0])
	}
}

func TestListStudents_StudentForbidden(t *testing.T) {
	us := &fakeUserService{}
	r := newUserRouter(2, models.RoleStudent, us)

	if w := do(r, httptest.NewRequest(http.MethodGet, "/users/students", nil)); w.Code != http.StatusForbidden {
		t.Errorf("status = %d", w.Code)
	}
	if us.listed {
		t.Error("service must not be called")
	}
}

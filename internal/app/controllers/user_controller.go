package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/services"
	"github.com/yigit/classjournal/internal/middleware"
)

// UserController handles user-related operations
type UserController struct {
	userService services.UserService
}

// NewUserController creates a new user controller
func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// GetCurrentUser retrieves the authenticated user's profile
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /users/me [get]
func (c *UserController) GetCurrentUser(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}

	user, err := c.userService.GetCurrentUser(ctx.Request.Context(), r.UserID())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: user})
}

// ListStudents lists the students a teacher can tag
// @Summary List students
// @Description Returns id and username of every student, ordered by username
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.StudentListItem}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /users/students [get]
func (c *UserController) ListStudents(ctx *gin.Context) {
	if _, ok := teacher(ctx); !ok {
		return
	}

	students, err := c.userService.ListStudents(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: students})
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/auth"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/middleware"
)

// parseIDParam parses a positive ID parameter from the request path. On failure the
// 400 response is written and false returned.
func parseIDParam(ctx *gin.Context, paramName string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid "+paramName).WithField(paramName),
		})
		return 0, false
	}
	return id, true
}

// requester returns the authenticated caller, writing the error response when absent
func requester(ctx *gin.Context) (auth.Requester, bool) {
	r, err := middleware.RequesterFromContext(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return nil, false
	}
	return r, true
}

// teacher returns the authenticated caller when it is a teacher
func teacher(ctx *gin.Context) (auth.Teacher, bool) {
	r, ok := requester(ctx)
	if !ok {
		return auth.Teacher{}, false
	}
	t, err := auth.AsTeacher(r)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return auth.Teacher{}, false
	}
	return t, true
}

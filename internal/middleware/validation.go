package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/validation"
)

// BindJSON decodes the request body into obj and validates its tags. An empty body is
// accepted when allowEmpty is set. On failure the response is written and false returned.
func BindJSON(c *gin.Context, obj interface{}, allowEmpty bool) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid request format").WithDetails(err.Error()),
		})
		return false
	}

	if err := validation.Struct(obj); err != nil {
		HandleAPIError(c, err)
		return false
	}
	return true
}

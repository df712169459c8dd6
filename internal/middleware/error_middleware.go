package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/pkg/apperrors"
	"github.com/yigit/classjournal/internal/pkg/logger"
	"github.com/yigit/classjournal/internal/pkg/observability"
)

// HandleAPIError maps a service error to its HTTP status and error code.
// Unclassified errors are reported to Sentry and answered with a generic 500.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("Unhandled request error")
		observability.CaptureWithTags(err, map[string]string{"route": c.FullPath()})
	}
	c.AbortWithStatusJSON(status, dto.APIResponse{Error: detail})
}

func classify(err error) (int, *dto.ErrorDetail) {
	msg := apperrors.Message(err)
	withMessage := func(fallback string) string {
		if msg != "" {
			return msg
		}
		return fallback
	}

	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, withMessage("Validation failed"))
		if field := errorField(err); field != "" {
			detail = detail.WithField(field)
		}
		return http.StatusBadRequest, detail
	case errors.Is(err, apperrors.ErrNotFoundOrForbidden), errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, withMessage("Resource not found"))
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, withMessage("The resource was modified concurrently, retry the request"))
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}

func errorField(err error) string {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) && ce.Details != nil {
		if field, ok := ce.Details["field"].(string); ok {
			return field
		}
	}
	return ""
}

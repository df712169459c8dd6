package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/services"
	"github.com/yigit/classjournal/internal/middleware"
	"github.com/yigit/classjournal/internal/pkg/helpers"
)

// NotificationController exposes the caller's notifications and preferences
type NotificationController struct {
	notificationService services.NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// ListNotifications godoc
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.NotificationConnection}
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}
	page, limit := helpers.ParsePaginationParams(ctx)

	conn, err := c.notificationService.ListNotifications(ctx.Request.Context(), r.UserID(), page, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: conn})
}

// GetPreferences godoc
// @Summary Get notification preferences
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.NotificationPreferenceResponse}
// @Router /notifications/preferences [get]
func (c *NotificationController) GetPreferences(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}

	prefs, err := c.notificationService.GetPreferences(ctx.Request.Context(), r.UserID())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: prefs})
}

// UpdatePreferences godoc
// @Summary Update notification preferences
// @Description Changes only the switches present in the body
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateNotificationPreferencesRequest true "Preferences"
// @Success 200 {object} dto.APIResponse{data=dto.NotificationPreferenceResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /notifications/preferences [patch]
func (c *NotificationController) UpdatePreferences(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}

	var req dto.UpdateNotificationPreferencesRequest
	if !middleware.BindJSON(ctx, &req, false) {
		return
	}

	prefs, err := c.notificationService.UpdatePreferences(ctx.Request.Context(), r.UserID(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: prefs})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} dto.APIResponse{data=models.Notification}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /notifications/{id}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	n, err := c.notificationService.MarkRead(ctx.Request.Context(), id, r.UserID())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: n})
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=bool}
// @Router /notifications/read-all [put]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}

	done, err := c.notificationService.MarkAllRead(ctx.Request.Context(), r.UserID())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: done})
}

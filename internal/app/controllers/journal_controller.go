package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/services"
	"github.com/yigit/classjournal/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JournalController handles the teacher-side journal operations
type JournalController struct {
	journalService services.JournalService
}

// NewJournalController creates a new JournalController
func NewJournalController(journalService services.JournalService) *JournalController {
	return &JournalController{journalService: journalService}
}

// CreateJournal godoc
// @Summary Create a journal
// @Description Creates a journal with tagged students. Accepts JSON, or multipart/form-data with up to 5 files under "attachments".
// @Tags journals
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateJournalRequest true "Journal"
// @Success 201 {object} dto.APIResponse{data=dto.JournalResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 500 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals [post]
func (c *JournalController) CreateJournal(ctx *gin.Context) {
	t, ok := teacher(ctx)
	if !ok {
		return
	}

	req, files, err := bindCreateJournal(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	journal, err := c.journalService.CreateJournal(ctx.Request.Context(), t.ID, req, files)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: journal})
}

// UpdateJournal godoc
// @Summary Update a journal
// @Description Applies the fields present in the request. An explicit empty studentIds removes every tag.
// @Tags journals
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Journal ID"
// @Param request body dto.UpdateJournalRequest true "Changed fields"
// @Success 200 {object} dto.APIResponse{data=dto.JournalResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/{id} [put]
func (c *JournalController) UpdateJournal(ctx *gin.Context) {
	t, ok := teacher(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	req, files, err := bindUpdateJournal(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	journal, err := c.journalService.UpdateJournal(ctx.Request.Context(), id, t.ID, req, files)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: journal})
}

// DeleteJournal godoc
// @Summary Delete a journal
// @Description Deletes a journal with its attachments and tags
// @Tags journals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Journal ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/{id} [delete]
func (c *JournalController) DeleteJournal(ctx *gin.Context) {
	t, ok := teacher(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.journalService.DeleteJournal(ctx.Request.Context(), id, t.ID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.SuccessResponse{Message: "Journal deleted successfully"}})
}

// PublishJournal godoc
// @Summary Publish a journal
// @Description Publishes now, or schedules when publishedAt lies in the future. The body is optional.
// @Tags journals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Journal ID"
// @Param request body dto.PublishJournalRequest false "Publish time"
// @Success 200 {object} dto.APIResponse{data=dto.JournalResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/{id}/publish [put]
func (c *JournalController) PublishJournal(ctx *gin.Context) {
	t, ok := teacher(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.PublishJournalRequest
	if !middleware.BindJSON(ctx, &req, true) {
		return
	}

	journal, err := c.journalService.PublishJournal(ctx.Request.Context(), id, t.ID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: journal})
}

// ListTagStates godoc
// @Summary List tag states
// @Description Shows which tagged students have been notified and have viewed the journal
// @Tags journals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Journal ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagStateResponse}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/{id}/tags [get]
func (c *JournalController) ListTagStates(ctx *gin.Context) {
	t, ok := teacher(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	states, err := c.journalService.ListTagStates(ctx.Request.Context(), id, t.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: states})
}

// ExportTagStates godoc
// @Summary Export tag states
// @Description Downloads the tag states of a journal as an Excel workbook
// @Tags journals
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Journal ID"
// @Success 200 {file} file
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/{id}/tags/export [get]
func (c *JournalController) ExportTagStates(ctx *gin.Context) {
	t, ok := teacher(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	filename, data, err := c.journalService.ExportTagStates(ctx.Request.Context(), id, t.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, xlsxContentType, data)
}

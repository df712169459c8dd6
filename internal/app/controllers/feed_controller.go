package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
	"github.com/yigit/classjournal/internal/app/services"
	"github.com/yigit/classjournal/internal/middleware"
	"github.com/yigit/classjournal/internal/pkg/helpers"
)

// FeedController serves journal reads for both roles
type FeedController struct {
	feedService services.FeedService
}

// NewFeedController creates a new FeedController
func NewFeedController(feedService services.FeedService) *FeedController {
	return &FeedController{feedService: feedService}
}

// GetFeed godoc
// @Summary Get journal feed
// @Description Teachers see their own journals in every state. Students see journals they are tagged in that are published.
// @Tags journals
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.JournalFeedResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/feed [get]
func (c *FeedController) GetFeed(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}
	page, limit := helpers.ParsePaginationParams(ctx)

	feed, err := c.feedService.GetFeed(ctx.Request.Context(), r, page, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: feed})
}

// GetJournal godoc
// @Summary Get a journal
// @Description Returns one journal under the same visibility rules as the feed
// @Tags journals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Journal ID"
// @Success 200 {object} dto.APIResponse{data=dto.JournalResponse}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /journals/{id} [get]
func (c *FeedController) GetJournal(ctx *gin.Context) {
	r, ok := requester(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	journal, err := c.feedService.GetByID(ctx.Request.Context(), r, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: journal})
}

package helpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/classjournal/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1

	// MaxPage keeps (page-1)*MaxPageSize within int
	MaxPage = math.MaxInt / MaxPageSize
)

// NormalizePage clamps a requested 1-based page and page size into the accepted range
func NormalizePage(page, limit int) (int, int) {
	switch {
	case page < 1:
		page = DefaultPage
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case limit < 1:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit
}

// CalculateOffsetLimit calculates the offset and limit for SQL queries based on a 1-based page index
func CalculateOffsetLimit(page, limit int) (offset uint64, size uint64) {
	page, limit = NormalizePage(page, limit)
	return uint64((page - 1) * limit), uint64(limit)
}

// NewPaginationInfo builds pagination metadata. The requested page is echoed back even
// when it lies past the last page, in which case the listing is simply empty.
func NewPaginationInfo(total int64, page, limit int) dto.PaginationInfo {
	page, limit = NormalizePage(page, limit)

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}

	return dto.PaginationInfo{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// ParsePaginationParams extracts page and limit query parameters, falling back to defaults
func ParsePaginationParams(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = DefaultPage
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if err != nil {
		limit = DefaultPageSize
	}
	return NormalizePage(page, limit)
}

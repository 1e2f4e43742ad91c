package helpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/circlehub/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1
)

// Page is a normalized 1-based page request
type Page struct {
	Number int
	Size   int
}

// Skip is the number of documents to skip for this page.
func (p Page) Skip() int64 {
	return int64((p.Number - 1) * p.Size)
}

// Limit is the number of documents to return for this page.
func (p Page) Limit() int64 {
	return int64(p.Size)
}

// NewPage clamps page and size into valid ranges.
func NewPage(page, size int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return Page{Number: page, Size: size}
}

// NewPaginationInfo creates a standard PaginationInfo DTO.
func NewPaginationInfo(totalItems int64, p Page) dto.PaginationInfo {
	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(p.Size)))
	} else if p.Number == 1 {
		totalPages = 1
	}

	currentPage := p.Number
	if totalPages > 0 && currentPage > totalPages {
		currentPage = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		PageSize:    p.Size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams extracts and validates ?page=&size= from the request
func ParsePaginationParams(c *gin.Context) Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = DefaultPage
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(DefaultPageSize)))
	if err != nil {
		size = DefaultPageSize
	}
	return NewPage(page, size)
}

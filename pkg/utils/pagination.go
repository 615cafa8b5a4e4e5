package utils

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultSize = 10
	maxSize     = 100
)

// Pagination is a 1-based page window over the video listing. Page 0 is
// treated as the first page.
type Pagination struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

func (p *Pagination) GetPage() int  { return p.Page }
func (p *Pagination) GetSize() int  { return p.Size }
func (p *Pagination) GetLimit() int { return p.Size }

func (p *Pagination) GetOffset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// GetPaginationFromCtx reads ?page and ?size. Oversized pages are clamped to
// maxSize; negative or non-numeric values are rejected.
func GetPaginationFromCtx(c echo.Context) (*Pagination, error) {
	page, err := queryInt(c, "page", 0, 0)
	if err != nil {
		return nil, err
	}
	size, err := queryInt(c, "size", defaultSize, 1)
	if err != nil {
		return nil, err
	}
	return &Pagination{Page: page, Size: min(size, maxSize)}, nil
}

func queryInt(c echo.Context, name string, def, floor int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < floor {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

func GetTotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

func GetHasMore(page, totalCount, pageSize int) bool {
	return max(page, 1)*pageSize < totalCount
}

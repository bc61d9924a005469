package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
	// MaxPage keeps (page-1)*size well inside int64.
	MaxPage = 1_000_000
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	return FromContextWithSize(c, DefaultSize)
}

// FromContextWithSize is FromContext with a per-endpoint default page size.
// Both "size" and "limit" are accepted as the page size parameter.
func FromContextWithSize(c *gin.Context, defaultSize int) Query {
	if defaultSize < 1 {
		defaultSize = DefaultSize
	}
	page := parseIntOr(c.Query("page"), DefaultPage)
	raw := c.Query("size")
	if raw == "" {
		raw = c.Query("limit")
	}
	size := parseIntOr(raw, defaultSize)
	return New(page, size, defaultSize)
}

// New clamps page and size into range.
func New(page, size, defaultSize int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = defaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// Skip is the number of documents before the requested page.
func (q Query) Skip() int64 {
	if q.Page < 1 || q.Size < 1 {
		return 0
	}
	return int64(q.Page-1) * int64(q.Size)
}

// Meta builds the pagination metadata for a total document count.
func (q Query) Meta(total int64) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

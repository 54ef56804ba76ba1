package services

import (
	"math"
	"net/url"
	"strconv"
)

// PageRequest selects a window of a listing. Either page/size or
// offset/limit query parameters are accepted.
type PageRequest struct {
	Offset int
	Limit  int
}

// Page is the envelope returned for paginated listings.
type Page[T any] struct {
	Data        []T  `json:"data"`
	Page        int  `json:"page"`
	Size        int  `json:"size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// ParsePageRequest reads page/size (default) or offset/limit from q. Invalid
// values fall back to defaults; size is clamped to maxSize.
func ParsePageRequest(q url.Values, defaultSize, maxSize int) PageRequest {
	limit := defaultSize
	offset := 0

	if q.Has("offset") || q.Has("limit") {
		if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
			offset = n
		}
		if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
			limit = n
		}
	} else {
		page := 1
		if n, err := strconv.Atoi(q.Get("page")); err == nil && n >= 1 {
			page = n
		}
		if n, err := strconv.Atoi(q.Get("size")); err == nil && n > 0 {
			limit = n
		}
		limit = min(limit, maxSize)
		offset = (page - 1) * limit
	}

	if limit > maxSize {
		limit = maxSize
	}
	if limit <= 0 {
		limit = 10
	}
	return PageRequest{Offset: offset, Limit: limit}
}

// Paginate slices items according to req and wraps them in a Page.
func Paginate[T any](items []T, req PageRequest) Page[T] {
	total := len(items)
	offset := min(req.Offset, total)
	end := min(offset+req.Limit, total)

	totalPages := int(math.Ceil(float64(total) / float64(req.Limit)))
	if totalPages == 0 {
		totalPages = 1
	}

	data := items[offset:end]
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:        data,
		Page:        offset/req.Limit + 1,
		Size:        req.Limit,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     end < total,
		HasPrevious: offset > 0,
	}
}

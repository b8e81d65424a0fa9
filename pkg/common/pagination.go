package common

import (
	"net/http"
	"net/url"
	"strconv"

	apperrors "ideaclient/pkg/errors"
)

const (
	// DefaultPage is used when a caller does not ask for a specific page
	DefaultPage = 1
	// DefaultPageSize matches the API's default page size
	DefaultPageSize = 50
	// MaxPageSize is the largest page the API serves
	MaxPageSize = 100
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// DefaultPaginationParams returns default pagination parameters
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Page: DefaultPage,
		Size: DefaultPageSize,
	}
}

// NormalizePage maps the zero value to the first page and rejects negatives
func NormalizePage(page int) (int, error) {
	switch {
	case page == 0:
		return DefaultPage, nil
	case page < 0:
		return 0, apperrors.NewValidationError("page must be a positive integer")
	default:
		return page, nil
	}
}

// PageQuery builds the query string for a paginated GET
func PageQuery(page int) url.Values {
	return url.Values{"page": []string{strconv.Itoa(page)}}
}

// ExtractPaginationParams extracts pagination parameters from request
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if size := r.URL.Query().Get("size"); size != "" {
		if s, err := strconv.Atoi(size); err == nil && s > 0 {
			if s > MaxPageSize {
				s = MaxPageSize
			}
			params.Size = s
		}
	}

	return params
}

// CalculateOffset calculates the offset of the first item on the page
func (p PaginationParams) CalculateOffset() int {
	return (p.Page - 1) * p.Size
}

// CalculateTotalPages calculates total number of pages
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

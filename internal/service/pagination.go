package service

import "github.com/noah-isme/facility-admin-api/internal/models"

// paginationFor mirrors the clamping the repositories apply to page and size.
func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

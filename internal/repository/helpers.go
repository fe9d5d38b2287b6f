package repository

import "strings"

// sortColumn returns requested when whitelisted, otherwise fallback.
func sortColumn(requested, fallback string, allowed ...string) string {
	for _, col := range allowed {
		if requested == col {
			return col
		}
	}
	return fallback
}

func sortOrder(requested, fallback string) string {
	order := strings.ToUpper(requested)
	if order != "ASC" && order != "DESC" {
		return fallback
	}
	return order
}

// paginate clamps page and size and returns the matching offset.
func paginate(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}

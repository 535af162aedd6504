package postgres

import (
	"fmt"

	"gorm.io/gorm"
)

var sortableColumns = map[string]bool{
	"created_at": true,
	"started_at": true,
	"score":      true,
	"name":       true,
}

// applyPaginationAndSort bounds limits and whitelists sort columns.
func applyPaginationAndSort(query *gorm.DB, limit, offset int, sortBy, sortOrder string) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return query.
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Limit(limit).
		Offset(offset)
}

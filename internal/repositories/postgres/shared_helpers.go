package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleDBError maps driver errors onto repository sentinels
func handleDBError(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s failed: %w", op, repositories.ErrNotFound)
	case repositories.IsDuplicateError(err):
		return fmt.Errorf("%s failed: %w", op, repositories.ErrDuplicate)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}

// applyPagination clamps limit and offset onto a query
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

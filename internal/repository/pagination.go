package repository

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationMeta defines the structure for pagination metadata.
type PaginationMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// Page is one page of results plus its metadata.
type Page[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NormalizePage clamps page and limit into their valid ranges.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// NewPage creates a new Page.
func NewPage[T any](data []T, totalItems int64, page, limit int) Page[T] {
	if limit <= 0 {
		limit = 1
	}
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data: data,
		Meta: PaginationMeta{
			TotalItems:  totalItems,
			TotalPages:  (int(totalItems) + limit - 1) / limit,
			CurrentPage: page,
			PageSize:    limit,
		},
	}
}

// Paginate counts the rows matched by filter and fetches one page of them.
// The find scopes (ordering, preloads) apply to the page query only.
func Paginate[T any](db *gorm.DB, filter func(*gorm.DB) *gorm.DB, page, limit int, find ...func(*gorm.DB) *gorm.DB) (Page[T], error) {
	page, limit = NormalizePage(page, limit)

	var totalItems int64
	if err := db.Model(new(T)).Scopes(filter).Count(&totalItems).Error; err != nil {
		return Page[T]{}, err
	}

	var results []T
	offset := (page - 1) * limit
	if err := db.Scopes(filter).Scopes(find...).Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return Page[T]{}, err
	}

	return NewPage(results, totalItems, page, limit), nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/cinequery/cinequery/internal/domain"
)

// FilmRepository provides read access to the structured film catalog.
// The structured adapter hands it generated SELECT statements; result
// columns are mapped to ResultItem fields by name so the generated query
// is free to project, aggregate, and alias.
type FilmRepository struct {
	db *DB
}

// NewFilmRepository creates a new film repository
func NewFilmRepository(db *DB) *FilmRepository {
	return &FilmRepository{db: db}
}

// QueryItems executes a SELECT against the catalog and maps rows to
// structured result items. Row order is preserved as returned by SQLite,
// i.e. by whatever sort the statement requested.
func (r *FilmRepository) QueryItems(ctx context.Context, query string) ([]domain.ResultItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var items []domain.ResultItem
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		item := domain.ResultItem{Source: domain.BackendStructured}
		for i, col := range columns {
			if !values[i].Valid {
				continue
			}
			assignColumn(&item, col, values[i].String)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// assignColumn maps a projected column to the matching ResultItem field.
// Aggregate aliases like "rentals" or "total_count" land on RentalCount.
func assignColumn(item *domain.ResultItem, column, value string) {
	switch col := strings.ToLower(column); {
	case col == "title" || col == "film" || col == "name":
		item.Title = value
	case strings.Contains(col, "rental") || strings.Contains(col, "count") || col == "rentals":
		if n, err := strconv.Atoi(value); err == nil {
			item.RentalCount = n
		}
	case col == "rating":
		item.Rating = value
	case col == "language":
		item.Language = value
	case strings.Contains(col, "year"):
		if n, err := strconv.Atoi(value); err == nil {
			item.ReleaseYear = n
		}
	case col == "category" || col == "genre":
		item.Category = value
	case col == "actors" || col == "actor":
		item.Actors = value
	}
}

// Count returns the number of films in the catalog
func (r *FilmRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM films`).Scan(&count)
	return count, err
}

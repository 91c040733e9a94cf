package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"daily-trivia-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads content items and the category directory from
// Postgres JSONB rows.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	items, err := loadRows[domain.ContentItem](ctx, l.pool, `SELECT data FROM content_items`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load content items: %w", err)
	}
	directory, err := loadRows[domain.CategoryEntry](ctx, l.pool, `SELECT data FROM categories`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load category directory: %w", err)
	}
	return domain.NewCatalog(items, directory), nil
}

func loadRows[T any](ctx context.Context, pool *pgxpool.Pool, query string) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("unmarshal row: %w", err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

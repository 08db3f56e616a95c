package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkarlin/storefront-api/internal/model"
)

type CategoryRepository interface {
	FindOrCreate(ctx context.Context, name string) (*model.Category, error)
}

type pgCategoryRepo struct{ pool *pgxpool.Pool }

func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &pgCategoryRepo{pool: pool}
}

// FindOrCreate resolves a category by name, creating it on first use.
// The no-op DO UPDATE makes the insert return the existing row instead
// of nothing, so concurrent callers converge on the same id.
func (r *pgCategoryRepo) FindOrCreate(ctx context.Context, name string) (*model.Category, error) {
	cat := &model.Category{}
	query := `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, NOW())
			  ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			  RETURNING id, name, created_at`
	err := r.pool.QueryRow(ctx, query, uuid.New(), name).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create category: %w", err)
	}
	return cat, nil
}

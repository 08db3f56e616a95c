package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkarlin/storefront-api/internal/model"
)

type CartRepository interface {
	GetOrCreate(ctx context.Context, userUID string) (*model.Cart, error)
	GetByUser(ctx context.Context, userUID string) (*model.Cart, error)
	GetWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	AddItem(ctx context.Context, item *model.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

// GetOrCreate upserts against the carts.user_uid unique constraint, so
// two concurrent first calls for the same user still end up with a
// single cart row.
func (r *pgCartRepo) GetOrCreate(ctx context.Context, userUID string) (*model.Cart, error) {
	cart := &model.Cart{}
	query := `INSERT INTO carts (id, user_uid, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
			  ON CONFLICT (user_uid) DO UPDATE SET updated_at = carts.updated_at
			  RETURNING id, user_uid, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, uuid.New(), userUID).Scan(
		&cart.ID, &cart.UserUID, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) GetByUser(ctx context.Context, userUID string) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_uid, created_at, updated_at FROM carts WHERE user_uid = $1`, userUID,
	).Scan(&cart.ID, &cart.UserUID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart by user: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) GetWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_uid, created_at, updated_at FROM carts WHERE id = $1`, cartID,
	).Scan(&cart.ID, &cart.UserUID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, cart_id, product_id, quantity, created_at, updated_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// AddItem merges on (cart_id, product_id): a second add of the same
// product increments the existing row's quantity.
func (r *pgCartRepo) AddItem(ctx context.Context, item *model.CartItem) error {
	item.ID = uuid.New()
	query := `INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + $4, updated_at = NOW()
			  RETURNING id, quantity, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, item.ID, item.CartID, item.ProductID, item.Quantity).Scan(
		&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

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

type OrderRepository interface {
	CreateFromCart(ctx context.Context, order *model.Order, cartID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userUID string) ([]model.Order, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

// CreateFromCart persists the order with its items and empties the
// originating cart in a single transaction, so a failed checkout leaves
// both untouched.
func (r *pgOrderRepo) CreateFromCart(ctx context.Context, order *model.Order, cartID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_uid, total_amount, created_at)
		 VALUES ($1, $2, $3, NOW()) RETURNING created_at`,
		order.ID, order.UserUID, order.TotalAmount,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			order.Items[i].ID, order.ID, order.Items[i].ProductID,
			order.Items[i].Quantity, order.Items[i].Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_uid, total_amount, created_at FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.UserUID, &order.TotalAmount, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, quantity, price FROM order_items WHERE order_id = $1`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUser(ctx context.Context, userUID string) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, total_amount, created_at FROM orders WHERE user_uid = $1 ORDER BY created_at DESC`,
		userUID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	byID := make(map[uuid.UUID]*model.Order)
	for rows.Next() {
		var o model.Order
		o.UserUID = userUID
		if err := rows.Scan(&o.ID, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item model.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkarlin/storefront-api/internal/model"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByUID(ctx context.Context, uid string) (*model.User, error)
	UpdateRole(ctx context.Context, uid string, role model.Role) error
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

// Upsert inserts the user on first login and refreshes name, email and
// role on every later one. Contact fields are owned by the user, not the
// identity provider, so the update leaves them alone.
func (r *pgUserRepo) Upsert(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (uid, name, email, phone_number, shipping_address, role, created_at, updated_at)
			  VALUES ($1, $2, $3, '', '', $4, NOW(), NOW())
			  ON CONFLICT (uid) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role, updated_at = NOW()
			  RETURNING phone_number, shipping_address, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.UID, user.Name, user.Email, user.Role,
	).Scan(&user.PhoneNumber, &user.ShippingAddress, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	query := `SELECT uid, name, email, phone_number, shipping_address, role, created_at, updated_at
			  FROM users WHERE uid = $1`
	user := &model.User{}
	err := r.pool.QueryRow(ctx, query, uid).Scan(
		&user.UID, &user.Name, &user.Email, &user.PhoneNumber, &user.ShippingAddress,
		&user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by uid: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) UpdateRole(ctx context.Context, uid string, role model.Role) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE uid = $1`, uid, role,
	)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

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

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

// Create inserts the product row and its image rows in one transaction.
func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	product.ID = uuid.New()
	query := `INSERT INTO products (id, name, brand, description, price, inventory, category_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		product.ID, product.Name, product.Brand, product.Description,
		product.Price, product.Inventory, product.CategoryID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	for i := range product.Images {
		product.Images[i].ID = uuid.New()
		product.Images[i].ProductID = product.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO product_images (id, product_id, url, alt_text) VALUES ($1, $2, $3, $4)`,
			product.Images[i].ID, product.ID, product.Images[i].URL, product.Images[i].AltText,
		)
		if err != nil {
			return fmt.Errorf("create product image: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT p.id, p.name, p.brand, p.description, p.price, p.inventory, p.category_id, c.name, p.created_at, p.updated_at
			  FROM products p JOIN categories c ON c.id = p.category_id
			  WHERE p.id = $1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Brand, &p.Description, &p.Price, &p.Inventory,
		&p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if err := r.loadImages(ctx, map[uuid.UUID]*model.Product{p.ID: p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context) ([]model.Product, error) {
	query := `SELECT p.id, p.name, p.brand, p.description, p.price, p.inventory, p.category_id, c.name, p.created_at, p.updated_at
			  FROM products p JOIN categories c ON c.id = p.category_id
			  ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	byID := make(map[uuid.UUID]*model.Product)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Brand, &p.Description, &p.Price, &p.Inventory,
			&p.CategoryID, &p.CategoryName, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	if err := r.loadImages(ctx, byID); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *pgProductRepo) loadImages(ctx context.Context, byID map[uuid.UUID]*model.Product) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, url, alt_text FROM product_images WHERE product_id = ANY($1)`, ids,
	)
	if err != nil {
		return fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img model.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText); err != nil {
			return fmt.Errorf("scan product image: %w", err)
		}
		if p, ok := byID[img.ProductID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	return nil
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, brand=$3, description=$4, price=$5, inventory=$6, category_id=$7, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Brand, product.Description,
		product.Price, product.Inventory, product.CategoryID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete reports whether a row was removed; an unknown id is not an error.
func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

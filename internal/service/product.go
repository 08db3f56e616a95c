package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlin/storefront-api/internal/dto"
	"github.com/mkarlin/storefront-api/internal/model"
	"github.com/mkarlin/storefront-api/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	redisClient  *redis.Client
}

func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, redisClient *redis.Client) *ProductService {
	return &ProductService{productRepo: productRepo, categoryRepo: categoryRepo, redisClient: redisClient}
}

func (s *ProductService) Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error) {
	category, err := s.categoryRepo.FindOrCreate(ctx, req.Category)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}

	product := &model.Product{
		Name:         req.Name,
		Brand:        req.Brand,
		Description:  req.Description,
		Price:        req.Price,
		Inventory:    req.Inventory,
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Images:       toImages(req.Images),
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := "product:" + id.String()

	// Try cache
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	// Write to cache
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	resps := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		resps = append(resps, toProductResponse(&products[i]))
	}
	return resps, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	category, err := s.categoryRepo.FindOrCreate(ctx, req.Category)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}

	product.Name = req.Name
	product.Brand = req.Brand
	product.Description = req.Description
	product.Price = req.Price
	product.Inventory = req.Inventory
	product.CategoryID = category.ID
	product.CategoryName = category.Name

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// Delete reports whether anything was removed; deleting an unknown id
// is not an error.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	if deleted {
		s.invalidateCache(ctx, id)
	}
	return deleted, nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

func toImages(reqs []dto.ProductImageRequest) []model.ProductImage {
	images := make([]model.ProductImage, 0, len(reqs))
	for _, img := range reqs {
		images = append(images, model.ProductImage{URL: img.URL, AltText: img.AltText})
	}
	return images
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	images := make([]dto.ProductImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, dto.ProductImageResponse{ID: img.ID, URL: img.URL, AltText: img.AltText})
	}
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Description: p.Description,
		Price:       p.Price,
		Inventory:   p.Inventory,
		Category:    p.CategoryName,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

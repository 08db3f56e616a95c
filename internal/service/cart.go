package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkarlin/storefront-api/internal/dto"
	"github.com/mkarlin/storefront-api/internal/model"
	"github.com/mkarlin/storefront-api/internal/repository"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, userRepo repository.UserRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, userRepo: userRepo}
}

// GetCart returns the user's single cart, creating an empty one on
// first use. Repeated calls without mutation return the same cart.
func (s *CartService) GetCart(ctx context.Context, userUID string) (*dto.CartResponse, error) {
	if err := s.requireUser(ctx, userUID); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	withItems, err := s.cartRepo.GetWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return s.toCartResponse(ctx, withItems)
}

// AddItem merges with an existing line for the same product instead of
// appending a duplicate.
func (s *CartService) AddItem(ctx context.Context, userUID string, productID uuid.UUID, quantity int) (*dto.CartResponse, error) {
	if err := s.requireUser(ctx, userUID); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	item := &model.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
	if err := s.cartRepo.AddItem(ctx, item); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	withItems, err := s.cartRepo.GetWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return s.toCartResponse(ctx, withItems)
}

func (s *CartService) RemoveItem(ctx context.Context, userUID string, itemID uuid.UUID) (*dto.CartResponse, error) {
	if err := s.requireUser(ctx, userUID); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetByUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	withItems, err := s.cartRepo.GetWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	if !containsItem(withItems.Items, itemID) {
		return nil, ErrCartItemNotFound
	}

	if err := s.cartRepo.DeleteItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}

	withItems, err = s.cartRepo.GetWithItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return s.toCartResponse(ctx, withItems)
}

func (s *CartService) requireUser(ctx context.Context, userUID string) error {
	user, err := s.userRepo.GetByUID(ctx, userUID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return nil
}

func (s *CartService) toCartResponse(ctx context.Context, cart *model.Cart) (*dto.CartResponse, error) {
	resp := &dto.CartResponse{ID: cart.ID, Items: make([]dto.CartItemResponse, 0, len(cart.Items))}
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		itemResp := dto.CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if product != nil {
			itemResp.Name = product.Name
			itemResp.Price = product.Price
		}
		resp.Items = append(resp.Items, itemResp)
	}
	return resp, nil
}

func containsItem(items []model.CartItem, id uuid.UUID) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

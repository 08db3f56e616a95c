package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Auth ---

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	UID             string `json:"uid"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	Role            string `json:"role"`
}

type SetRoleRequest struct {
	UID  string `json:"uid" binding:"required"`
	Role string `json:"role" binding:"required,oneof=customer admin"`
}

// --- Product ---

type ProductImageRequest struct {
	URL     string `json:"url" binding:"required,url"`
	AltText string `json:"alt_text"`
}

type ProductRequest struct {
	Name        string                `json:"name" binding:"required"`
	Brand       string                `json:"brand" binding:"required"`
	Description string                `json:"description"`
	Price       decimal.Decimal       `json:"price" binding:"required"`
	Inventory   int                   `json:"inventory" binding:"min=0"`
	Category    string                `json:"category" binding:"required"`
	Images      []ProductImageRequest `json:"images"`
}

type ProductImageResponse struct {
	ID      uuid.UUID `json:"id"`
	URL     string    `json:"url"`
	AltText string    `json:"alt_text,omitempty"`
}

type ProductResponse struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Brand       string                 `json:"brand"`
	Description string                 `json:"description"`
	Price       decimal.Decimal        `json:"price"`
	Inventory   int                    `json:"inventory"`
	Category    string                 `json:"category"`
	Images      []ProductImageResponse `json:"images"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CartResponse struct {
	ID    uuid.UUID          `json:"id"`
	Items []CartItemResponse `json:"items"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// --- Order ---

type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
}

type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes a role claim, falling back to customer for
// unknown values.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// User is keyed by the identity provider's subject id rather than a
// generated uuid, so the same person maps to the same row across logins.
type User struct {
	UID             string
	Name            string
	Email           string
	PhoneNumber     string
	ShippingAddress string
	Role            Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Product struct {
	ID           uuid.UUID
	Name         string
	Brand        string
	Description  string
	Price        decimal.Decimal
	Inventory    int
	CategoryID   uuid.UUID
	CategoryName string
	Images       []ProductImage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ProductImage struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	URL       string
	AltText   string
}

type Cart struct {
	ID        uuid.UUID
	UserUID   string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is an immutable checkout snapshot; its items carry the unit
// price in effect at checkout time.
type Order struct {
	ID          uuid.UUID
	UserUID     string
	TotalAmount decimal.Decimal
	Items       []OrderItem
	CreatedAt   time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

type OrderPlacedMessage struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserUID     string    `json:"user_uid"`
	TotalAmount string    `json:"total_amount"`
}

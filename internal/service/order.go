package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/mkarlin/storefront-api/internal/dto"
	"github.com/mkarlin/storefront-api/internal/model"
	"github.com/mkarlin/storefront-api/internal/repository"
)

var (
	ErrEmptyCart     = errors.New("cannot checkout an empty cart")
	ErrOrderNotFound = errors.New("order not found")
)

const orderQueueName = "orders.placed"

type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	amqpCh      *amqp.Channel
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	amqpCh *amqp.Channel,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		amqpCh:      amqpCh,
	}
}

// Checkout converts the user's cart into an order. Unit prices are
// frozen at call time, so later product price changes never touch the
// order. Order insert and cart clear share one transaction.
func (s *OrderService) Checkout(ctx context.Context, userUID string) (*dto.OrderResponse, error) {
	user, err := s.userRepo.GetByUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
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
	if withItems == nil || len(withItems.Items) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(withItems.Items))
	for _, ci := range withItems.Items {
		product, err := s.productRepo.GetByID(ctx, ci.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity))))
		items = append(items, model.OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     product.Price,
		})
	}

	order := &model.Order{UserUID: userUID, TotalAmount: total, Items: items}
	if err := s.orderRepo.CreateFromCart(ctx, order, cart.ID); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publishOrderPlaced(ctx, order)

	resp := toOrderResponse(order)
	return &resp, nil
}

// publishOrderPlaced is best effort: the order is already committed, so
// a broker hiccup must not fail the checkout.
func (s *OrderService) publishOrderPlaced(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	msg, err := json.Marshal(model.OrderPlacedMessage{
		OrderID:     order.ID,
		UserUID:     order.UserUID,
		TotalAmount: order.TotalAmount.String(),
	})
	if err != nil {
		return
	}
	_ = s.amqpCh.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

// GetByID hides orders that belong to a different user behind the same
// not-found error, so order ids are not probeable.
func (s *OrderService) GetByID(ctx context.Context, userUID string, orderID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserUID != userUID {
		return nil, ErrOrderNotFound
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userUID string) ([]dto.OrderResponse, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	resps := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		resps = append(resps, toOrderResponse(&orders[i]))
	}
	return resps, nil
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return dto.OrderResponse{
		ID:          order.ID,
		TotalAmount: order.TotalAmount,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	}
}

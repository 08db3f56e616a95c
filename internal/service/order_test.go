package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlin/storefront-api/internal/model"
)

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	carts  *mockCartRepo
}

func newMockOrderRepo(carts *mockCartRepo) *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order), carts: carts}
}

// CreateFromCart stores the order and empties the cart, mimicking the
// real repository's single-transaction behavior.
func (m *mockOrderRepo) CreateFromCart(ctx context.Context, order *model.Order, cartID uuid.UUID) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	stored := *order
	stored.Items = append([]model.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &stored
	if m.carts != nil {
		_ = m.carts.ClearCart(ctx, cartID)
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userUID string) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserUID == userUID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func newOrderFixture() (*OrderService, *mockOrderRepo, *mockCartRepo, *mockProductRepo, *mockUserRepo) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	userRepo := newMockUserRepo()
	orderRepo := newMockOrderRepo(cartRepo)
	svc := NewOrderService(orderRepo, cartRepo, productRepo, userRepo, nil)
	return svc, orderRepo, cartRepo, productRepo, userRepo
}

func TestOrderService_Checkout(t *testing.T) {
	svc, _, cartRepo, productRepo, userRepo := newOrderFixture()
	userRepo.users["uid-1"] = &model.User{UID: "uid-1"}
	ctx := context.Background()

	productA := &model.Product{ID: uuid.New(), Name: "A", Price: decimal.NewFromFloat(10.00)}
	productB := &model.Product{ID: uuid.New(), Name: "B", Price: decimal.NewFromFloat(5.00)}
	productRepo.products[productA.ID] = productA
	productRepo.products[productB.ID] = productB

	cart, err := cartRepo.GetOrCreate(ctx, "uid-1")
	require.NoError(t, err)
	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{CartID: cart.ID, ProductID: productA.ID, Quantity: 2}))
	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{CartID: cart.ID, ProductID: productB.ID, Quantity: 1}))

	order, err := svc.Checkout(ctx, "uid-1")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromFloat(25.00)),
		"expected total 25.00, got %s", order.TotalAmount)
	assert.Len(t, order.Items, 2)

	// the originating cart is empty afterwards
	emptied, err := cartRepo.GetWithItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, emptied.Items)
}

func TestOrderService_Checkout_TotalImmuneToPriceChange(t *testing.T) {
	svc, _, cartRepo, productRepo, userRepo := newOrderFixture()
	userRepo.users["uid-1"] = &model.User{UID: "uid-1"}
	ctx := context.Background()

	product := &model.Product{ID: uuid.New(), Price: decimal.NewFromFloat(10.00)}
	productRepo.products[product.ID] = product

	cart, _ := cartRepo.GetOrCreate(ctx, "uid-1")
	require.NoError(t, cartRepo.AddItem(ctx, &model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 3}))

	placed, err := svc.Checkout(ctx, "uid-1")
	require.NoError(t, err)
	require.True(t, placed.TotalAmount.Equal(decimal.NewFromFloat(30.00)))

	product.Price = decimal.NewFromFloat(99.99)

	reloaded, err := svc.GetByID(ctx, "uid-1", placed.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TotalAmount.Equal(decimal.NewFromFloat(30.00)))
	require.Len(t, reloaded.Items, 1)
	assert.True(t, reloaded.Items[0].Price.Equal(decimal.NewFromFloat(10.00)))
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	svc, _, cartRepo, _, userRepo := newOrderFixture()
	userRepo.users["uid-1"] = &model.User{UID: "uid-1"}
	_, err := cartRepo.GetOrCreate(context.Background(), "uid-1")
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), "uid-1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_Checkout_NoCart(t *testing.T) {
	svc, _, _, _, userRepo := newOrderFixture()
	userRepo.users["uid-1"] = &model.User{UID: "uid-1"}
	_, err := svc.Checkout(context.Background(), "uid-1")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestOrderService_Checkout_UserNotFound(t *testing.T) {
	svc, _, _, _, _ := newOrderFixture()
	_, err := svc.Checkout(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestOrderService_GetByID_NotFound(t *testing.T) {
	svc, _, _, _, _ := newOrderFixture()
	_, err := svc.GetByID(context.Background(), "uid-1", uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_GetByID_OtherUsersOrderHidden(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderFixture()
	orderID := uuid.New()
	orderRepo.orders[orderID] = &model.Order{
		ID: orderID, UserUID: "owner", TotalAmount: decimal.NewFromInt(10),
	}

	_, err := svc.GetByID(context.Background(), "intruder", orderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_ListByUser(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderFixture()
	for i := 0; i < 2; i++ {
		id := uuid.New()
		orderRepo.orders[id] = &model.Order{ID: id, UserUID: "uid-1", TotalAmount: decimal.NewFromInt(int64(i + 1))}
	}

	orders, err := svc.ListByUser(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

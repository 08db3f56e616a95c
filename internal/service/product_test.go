package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlin/storefront-api/internal/dto"
	"github.com/mkarlin/storefront-api/internal/model"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	for i := range p.Images {
		p.Images[i].ID = uuid.New()
		p.Images[i].ProductID = p.ID
	}
	stored := *p
	m.products[p.ID] = &stored
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (m *mockProductRepo) List(_ context.Context) ([]model.Product, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	stored := *p
	m.products[p.ID] = &stored
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}

type mockCategoryRepo struct {
	byName map[string]*model.Category
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{byName: make(map[string]*model.Category)}
}

func (m *mockCategoryRepo) FindOrCreate(_ context.Context, name string) (*model.Category, error) {
	if cat, ok := m.byName[name]; ok {
		return cat, nil
	}
	cat := &model.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	m.byName[name] = cat
	return cat, nil
}

func TestProductService_Create(t *testing.T) {
	categories := newMockCategoryRepo()
	svc := NewProductService(newMockProductRepo(), categories, nil)

	resp, err := svc.Create(context.Background(), dto.ProductRequest{
		Name: "Trail Shoe", Brand: "Acme", Price: decimal.NewFromFloat(89.99),
		Inventory: 25, Category: "Footwear",
		Images: []dto.ProductImageRequest{{URL: "https://img.example.com/shoe.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Trail Shoe", resp.Name)
	assert.Equal(t, "Footwear", resp.Category)
	assert.Len(t, resp.Images, 1)
	require.Contains(t, categories.byName, "Footwear")
}

func TestProductService_Create_ReusesCategory(t *testing.T) {
	categories := newMockCategoryRepo()
	svc := NewProductService(newMockProductRepo(), categories, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, dto.ProductRequest{
		Name: "A", Brand: "Acme", Price: decimal.NewFromInt(1), Category: "Footwear",
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, dto.ProductRequest{
		Name: "B", Brand: "Acme", Price: decimal.NewFromInt(2), Category: "Footwear",
	})
	require.NoError(t, err)

	assert.Equal(t, first.Category, second.Category)
	assert.Len(t, categories.byName, 1)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), newMockCategoryRepo(), nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Update_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), newMockCategoryRepo(), nil)
	_, err := svc.Update(context.Background(), uuid.New(), dto.ProductRequest{
		Name: "X", Brand: "Acme", Price: decimal.NewFromInt(1), Category: "Misc",
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id}
	svc := NewProductService(repo, newMockCategoryRepo(), nil)

	deleted, err := svc.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, repo.products)
}

func TestProductService_Delete_Unknown(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), newMockCategoryRepo(), nil)
	deleted, err := svc.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

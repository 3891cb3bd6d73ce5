package service

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memCouponRepo struct {
	byID map[primitive.ObjectID]*model.Coupon
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{byID: map[primitive.ObjectID]*model.Coupon{}}
}

func (m *memCouponRepo) Insert(_ context.Context, c *model.Coupon) error {
	for _, other := range m.byID {
		if other.Code == c.Code {
			return repository.ErrDuplicateKey
		}
	}
	c.ID = primitive.NewObjectID()
	m.byID[c.ID] = c
	return nil
}

func (m *memCouponRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Coupon, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCouponRepo) FindByCode(_ context.Context, code string) (*model.Coupon, error) {
	for _, c := range m.byID {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCouponRepo) List(_ context.Context) ([]model.Coupon, error) {
	var out []model.Coupon
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCouponRepo) Update(_ context.Context, c *model.Coupon) (*model.Coupon, error) {
	if _, ok := m.byID[c.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.byID[c.ID] = c
	return c, nil
}

func (m *memCouponRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memCategories struct {
	byID map[primitive.ObjectID]*model.Category
}

func (m *memCategories) Insert(_ context.Context, c *model.Category) error {
	for _, other := range m.byID {
		if other.Slug == c.Slug {
			return repository.ErrDuplicateKey
		}
	}
	c.ID = primitive.NewObjectID()
	m.byID[c.ID] = c
	return nil
}

func (m *memCategories) FindByID(_ context.Context, id primitive.ObjectID) (*model.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCategories) List(_ context.Context) ([]model.Category, error) {
	var out []model.Category
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCategories) Update(_ context.Context, c *model.Category) (*model.Category, error) {
	if _, ok := m.byID[c.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.byID[c.ID] = c
	return c, nil
}

func (m *memCategories) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memProducts struct {
	byID map[primitive.ObjectID]*model.Product
}

func (m *memProducts) Insert(_ context.Context, p *model.Product) error {
	p.ID = primitive.NewObjectID()
	m.byID[p.ID] = p
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) List(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProducts) CountByCategory(_ context.Context, categoryID primitive.ObjectID) (int64, error) {
	var n int64
	for _, p := range m.byID {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (m *memProducts) Update(_ context.Context, p *model.Product) (*model.Product, error) {
	if _, ok := m.byID[p.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func newCatalog() (*CatalogService, *memCategories, *memProducts) {
	cats := &memCategories{byID: map[primitive.ObjectID]*model.Category{}}
	prods := &memProducts{byID: map[primitive.ObjectID]*model.Product{}}
	return NewCatalogService(cats, prods), cats, prods
}

func TestCouponCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	catalog, _, _ := newCatalog()
	coffee, err := catalog.CreateCategory(ctx, dto.CategoryRequest{Name: "Coffee"})
	require.NoError(t, err)
	beans, err := catalog.CreateProduct(ctx, dto.ProductRequest{Name: "Beans", Price: 900, CategoryID: coffee.ID.Hex()})
	require.NoError(t, err)
	other, err := catalog.CreateCategory(ctx, dto.CategoryRequest{Name: "Consoles"})
	require.NoError(t, err)
	console, err := catalog.CreateProduct(ctx, dto.ProductRequest{Name: "PS5", Price: 70000, CategoryID: other.ID.Hex()})
	require.NoError(t, err)

	svc := NewCouponService(newMemCouponRepo(), catalog.products)
	svc.now = func() time.Time { return now }

	create := func(req dto.CouponRequest) {
		t.Helper()
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}
	future := now.Add(48 * time.Hour)
	create(dto.CouponRequest{CouponCode: "save10", DiscountType: model.CouponPercentage, DiscountAmount: 10, MinimumPurchaseAmount: 500, EndDate: future})
	create(dto.CouponRequest{CouponCode: "EXPIRED", DiscountType: model.CouponFixed, DiscountAmount: 100, EndDate: now.Add(-time.Minute), Status: model.CouponActive})
	create(dto.CouponRequest{CouponCode: "OFF", DiscountType: model.CouponFixed, DiscountAmount: 100, EndDate: future, Status: model.CouponInactive})
	create(dto.CouponRequest{CouponCode: "COFFEE", DiscountType: model.CouponFixed, DiscountAmount: 5000, EndDate: future, ApplicableCategory: coffee.ID.Hex()})

	tests := []struct {
		name       string
		req        dto.CheckCouponRequest
		applicable bool
		msg        string
		discount   float64
	}{
		{"aplica", dto.CheckCouponRequest{CouponCode: " Save10 ", PurchaseAmount: 1000}, true, "Coupon is applicable.", 100},
		{"vencido aunque active", dto.CheckCouponRequest{CouponCode: "EXPIRED", PurchaseAmount: 1000}, false, "Coupon is expired.", 0},
		{"inactivo", dto.CheckCouponRequest{CouponCode: "OFF", PurchaseAmount: 1000}, false, "Coupon is inactive.", 0},
		{"mínimo", dto.CheckCouponRequest{CouponCode: "SAVE10", PurchaseAmount: 499}, false, "Minimum purchase amount not met for this coupon.", 0},
		{"sin productos", dto.CheckCouponRequest{CouponCode: "COFFEE", PurchaseAmount: 900}, false, "No products provided to check coupon applicability.", 0},
		{"otra categoría", dto.CheckCouponRequest{CouponCode: "COFFEE", PurchaseAmount: 70900, ProductIDs: []string{beans.ID.Hex(), console.ID.Hex()}}, false, "Coupon is not applicable for the provided products.", 0},
		{"fijo topeado", dto.CheckCouponRequest{CouponCode: "COFFEE", PurchaseAmount: 900, ProductIDs: []string{beans.ID.Hex()}}, true, "Coupon is applicable.", 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Check(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.applicable, res.Applicable)
			assert.Equal(t, tt.msg, res.Message)
			assert.Equal(t, tt.discount, res.Discount)
		})
	}

	_, err = svc.Check(ctx, dto.CheckCouponRequest{CouponCode: "NOPE"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCouponCreate_Rules(t *testing.T) {
	ctx := context.Background()
	svc := NewCouponService(newMemCouponRepo(), &memProducts{byID: map[primitive.ObjectID]*model.Product{}})
	end := time.Now().Add(time.Hour)

	c, err := svc.Create(ctx, dto.CouponRequest{CouponCode: "welcome", DiscountType: model.CouponFixed, DiscountAmount: 50, EndDate: end})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", c.Code)
	assert.Equal(t, model.CouponActive, c.Status)

	_, err = svc.Create(ctx, dto.CouponRequest{CouponCode: "WELCOME", DiscountType: model.CouponFixed, EndDate: end})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, dto.CouponRequest{CouponCode: "BIG", DiscountType: model.CouponPercentage, DiscountAmount: 120, EndDate: end})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCategoryDeleteBlockedByProducts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalog()

	cat, err := svc.CreateCategory(ctx, dto.CategoryRequest{Name: "Café de Altura"})
	require.NoError(t, err)
	assert.Equal(t, "cafe-de-altura", cat.Slug)

	_, err = svc.CreateCategory(ctx, dto.CategoryRequest{Name: "cafe de altura"})
	assert.ErrorIs(t, err, ErrConflict)

	p, err := svc.CreateProduct(ctx, dto.ProductRequest{Name: "Kenya AA", Price: 1500, CategoryID: cat.ID.Hex()})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, cat.ID.Hex())
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Products are referencing it")

	require.NoError(t, svc.DeleteProduct(ctx, p.ID.Hex()))
	require.NoError(t, svc.DeleteCategory(ctx, cat.ID.Hex()))
}

func TestProductValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalog()
	cat, err := svc.CreateCategory(ctx, dto.CategoryRequest{Name: "Games"})
	require.NoError(t, err)

	offer := 80.0
	_, err = svc.CreateProduct(ctx, dto.ProductRequest{Name: "FIFA", Price: 60, OfferPrice: &offer, CategoryID: cat.ID.Hex()})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, dto.ProductRequest{Name: "FIFA", Price: 60, CategoryID: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Café Arábica 500g":    "cafe-arabica-500g",
		"  Consolas & Juegos ": "consolas-juegos",
		"PS5 -- Edición Pro!":  "ps5-edicion-pro",
		"Ñandú":                "nandu",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestShippingService(t *testing.T) {
	svc := NewShippingService(nil)
	_, err := svc.Create(context.Background(), dto.ShippingFeeRequest{Destination: " ", Amount: 10})
	assert.ErrorIs(t, err, ErrValidation)

	f, err := shippingFromRequest(dto.ShippingFeeRequest{Destination: "Kisumu", Amount: 350})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDeliveryTime, f.DeliveryTime)
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CouponRepository interface {
	Insert(ctx context.Context, c *model.Coupon) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Coupon, error)
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	Update(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Product, error)
}

type CouponService struct {
	repo     CouponRepository
	products ProductLookup
	now      func() time.Time
}

func NewCouponService(repo CouponRepository, products ProductLookup) *CouponService {
	return &CouponService{repo: repo, products: products, now: time.Now}
}

const duplicateCouponMsg = "Coupon code already exists."

func (s *CouponService) Create(ctx context.Context, req dto.CouponRequest) (*model.Coupon, error) {
	c, err := couponFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, conflict(duplicateCouponMsg)
		}
		return nil, persistence(err)
	}
	return c, nil
}

func (s *CouponService) List(ctx context.Context) ([]model.Coupon, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return out, nil
}

func (s *CouponService) Get(ctx context.Context, rawID string) (*model.Coupon, error) {
	id, err := parseID(rawID, "coupon")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Coupon")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return c, nil
}

func (s *CouponService) Update(ctx context.Context, rawID string, req dto.CouponRequest) (*model.Coupon, error) {
	id, err := parseID(rawID, "coupon")
	if err != nil {
		return nil, err
	}
	c, err := couponFromRequest(req)
	if err != nil {
		return nil, err
	}
	c.ID = id

	updated, err := s.repo.Update(ctx, c)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("Coupon")
	case errors.Is(err, repository.ErrDuplicateKey):
		return nil, conflict(duplicateCouponMsg)
	case err != nil:
		return nil, persistence(err)
	}
	return updated, nil
}

func (s *CouponService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "coupon")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Coupon")
		}
		return persistence(err)
	}
	return nil
}

type CouponCheckResult struct {
	Applicable bool          `json:"applicable"`
	Message    string        `json:"message"`
	Coupon     *model.Coupon `json:"coupon,omitempty"`
	Discount   float64       `json:"discount,omitempty"`
}

func notApplicable(msg string) *CouponCheckResult {
	return &CouponCheckResult{Applicable: false, Message: msg}
}

// Check evalúa en orden: vencimiento, estado, compra mínima y alcance.
// Un cupón vencido no aplica aunque figure como active.
func (s *CouponService) Check(ctx context.Context, req dto.CheckCouponRequest) (*CouponCheckResult, error) {
	c, err := s.repo.FindByCode(ctx, normalizeCode(req.CouponCode))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Coupon")
	}
	if err != nil {
		return nil, persistence(err)
	}

	if c.Expired(s.now()) {
		return notApplicable("Coupon is expired."), nil
	}
	if c.Status != model.CouponActive {
		return notApplicable("Coupon is inactive."), nil
	}
	purchase := decimal.NewFromFloat(req.PurchaseAmount)
	if purchase.LessThan(decimal.NewFromFloat(c.MinimumPurchaseAmount)) {
		return notApplicable("Minimum purchase amount not met for this coupon."), nil
	}

	if c.ApplicableCategory != nil || c.ApplicableProduct != nil {
		ok, msg, err := s.matchesProducts(ctx, c, req.ProductIDs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return notApplicable(msg), nil
		}
	}

	return &CouponCheckResult{
		Applicable: true,
		Message:    "Coupon is applicable.",
		Coupon:     c,
		Discount:   discountFor(c, purchase).InexactFloat64(),
	}, nil
}

func (s *CouponService) matchesProducts(ctx context.Context, c *model.Coupon, rawIDs []string) (bool, string, error) {
	if len(rawIDs) == 0 {
		return false, "No products provided to check coupon applicability.", nil
	}
	ids := make([]primitive.ObjectID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw, "product")
		if err != nil {
			return false, "", err
		}
		ids = append(ids, id)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return false, "", persistence(err)
	}
	found := make(map[primitive.ObjectID]model.Product, len(products))
	for _, p := range products {
		found[p.ID] = p
	}

	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return false, "One or more products were not found.", nil
		}
		if c.ApplicableCategory != nil && p.CategoryID != *c.ApplicableCategory {
			return false, "Coupon is not applicable for the provided products.", nil
		}
		if c.ApplicableProduct != nil && p.ID != *c.ApplicableProduct {
			return false, "Coupon is not applicable for the provided products.", nil
		}
	}
	return true, "", nil
}

// discountFor fijo: nunca más que la compra. Porcentaje: sobre la compra.
func discountFor(c *model.Coupon, purchase decimal.Decimal) decimal.Decimal {
	amount := decimal.NewFromFloat(c.DiscountAmount)
	if c.DiscountType == model.CouponPercentage {
		return purchase.Mul(amount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return decimal.Min(amount, purchase)
}

func couponFromRequest(req dto.CouponRequest) (*model.Coupon, error) {
	code := normalizeCode(req.CouponCode)
	if code == "" {
		return nil, invalidFields([]string{"couponCode"})
	}
	if req.DiscountAmount < 0 {
		return nil, validation("discountAmount must not be negative")
	}
	if req.DiscountType == model.CouponPercentage && req.DiscountAmount > 100 {
		return nil, validation("percentage discount cannot exceed 100")
	}
	if req.DiscountType != model.CouponFixed && req.DiscountType != model.CouponPercentage {
		return nil, validation("Invalid discountType: %s", req.DiscountType)
	}

	status := req.Status
	if status == "" {
		status = model.CouponActive
	}

	c := &model.Coupon{
		Code:                  code,
		DiscountType:          req.DiscountType,
		DiscountAmount:        req.DiscountAmount,
		MinimumPurchaseAmount: req.MinimumPurchaseAmount,
		EndDate:               req.EndDate.UTC(),
		Status:                status,
	}
	if req.ApplicableCategory != "" {
		id, err := parseID(req.ApplicableCategory, "category")
		if err != nil {
			return nil, err
		}
		c.ApplicableCategory = &id
	}
	if req.ApplicableProduct != "" {
		id, err := parseID(req.ApplicableProduct, "product")
		if err != nil {
			return nil, err
		}
		c.ApplicableProduct = &id
	}
	return c, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

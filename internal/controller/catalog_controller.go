package controller

import (
	"context"
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

type CouponService interface {
	Create(ctx context.Context, req dto.CouponRequest) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	Get(ctx context.Context, rawID string) (*model.Coupon, error)
	Update(ctx context.Context, rawID string, req dto.CouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, rawID string) error
	Check(ctx context.Context, req dto.CheckCouponRequest) (*service.CouponCheckResult, error)
}

type ShippingService interface {
	Create(ctx context.Context, req dto.ShippingFeeRequest) (*model.ShippingFee, error)
	List(ctx context.Context) ([]model.ShippingFee, error)
	Get(ctx context.Context, rawID string) (*model.ShippingFee, error)
	Update(ctx context.Context, rawID string, req dto.ShippingFeeRequest) (*model.ShippingFee, error)
	ToggleCOD(ctx context.Context, rawID string) (*model.ShippingFee, error)
	Delete(ctx context.Context, rawID string) error
}

type CatalogService interface {
	CreateCategory(ctx context.Context, req dto.CategoryRequest) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, rawID string) (*model.Category, error)
	UpdateCategory(ctx context.Context, rawID string, req dto.CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, rawID string) error
	CreateProduct(ctx context.Context, req dto.ProductRequest) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, rawID string) (*model.Product, error)
	UpdateProduct(ctx context.Context, rawID string, req dto.ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, rawID string) error
}

type CouponController struct {
	Service CouponService
}

func NewCouponController(s CouponService) *CouponController {
	return &CouponController{Service: s}
}

// POST /coupons — admin only
func (ctl *CouponController) Create(c *gin.Context) {
	var req dto.CouponRequest
	if !bindJSON(c, &req) {
		return
	}
	coupon, err := ctl.Service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Coupon created successfully.", coupon)
}

// GET /coupons
func (ctl *CouponController) List(c *gin.Context) {
	coupons, err := ctl.Service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupons retrieved successfully.", coupons)
}

// GET /coupons/:id
func (ctl *CouponController) Get(c *gin.Context) {
	coupon, err := ctl.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon retrieved successfully.", coupon)
}

// PUT /coupons/:id — admin only
func (ctl *CouponController) Update(c *gin.Context) {
	var req dto.CouponRequest
	if !bindJSON(c, &req) {
		return
	}
	coupon, err := ctl.Service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon updated successfully.", coupon)
}

// DELETE /coupons/:id — admin only
func (ctl *CouponController) Delete(c *gin.Context) {
	if err := ctl.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon deleted successfully.", nil)
}

// POST /coupons/check — un cupón no aplicable responde success=false con 200
func (ctl *CouponController) Check(c *gin.Context) {
	var req dto.CheckCouponRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ctl.Service.Check(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: res.Applicable, Message: res.Message, Data: res})
}

type ShippingController struct {
	Service ShippingService
}

func NewShippingController(s ShippingService) *ShippingController {
	return &ShippingController{Service: s}
}

// POST /shipping-fees — admin only
func (ctl *ShippingController) Create(c *gin.Context) {
	var req dto.ShippingFeeRequest
	if !bindJSON(c, &req) {
		return
	}
	fee, err := ctl.Service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Shipping fee created successfully.", fee)
}

// GET /shipping-fees
func (ctl *ShippingController) List(c *gin.Context) {
	fees, err := ctl.Service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Shipping fees retrieved successfully.", fees)
}

// GET /shipping-fees/:id
func (ctl *ShippingController) Get(c *gin.Context) {
	fee, err := ctl.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Shipping fee retrieved successfully.", fee)
}

// PUT /shipping-fees/:id — admin only
func (ctl *ShippingController) Update(c *gin.Context) {
	var req dto.ShippingFeeRequest
	if !bindJSON(c, &req) {
		return
	}
	fee, err := ctl.Service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Shipping fee updated successfully.", fee)
}

// PATCH /shipping-fees/:id/toggle-cod — admin only
func (ctl *ShippingController) ToggleCOD(c *gin.Context) {
	fee, err := ctl.Service.ToggleCOD(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cash on delivery availability updated.", fee)
}

// DELETE /shipping-fees/:id — admin only
func (ctl *ShippingController) Delete(c *gin.Context) {
	if err := ctl.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Shipping fee deleted successfully.", nil)
}

type CatalogController struct {
	Service CatalogService
}

func NewCatalogController(s CatalogService) *CatalogController {
	return &CatalogController{Service: s}
}

// POST /categories — admin only
func (ctl *CatalogController) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := ctl.Service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Category created successfully.", cat)
}

func (ctl *CatalogController) ListCategories(c *gin.Context) {
	cats, err := ctl.Service.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Categories retrieved successfully.", cats)
}

func (ctl *CatalogController) GetCategory(c *gin.Context) {
	cat, err := ctl.Service.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Category retrieved successfully.", cat)
}

func (ctl *CatalogController) UpdateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := ctl.Service.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Category updated successfully.", cat)
}

func (ctl *CatalogController) DeleteCategory(c *gin.Context) {
	if err := ctl.Service.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Category deleted successfully.", nil)
}

// POST /products — admin only
func (ctl *CatalogController) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := ctl.Service.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully.", p)
}

func (ctl *CatalogController) ListProducts(c *gin.Context) {
	products, err := ctl.Service.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully.", products)
}

func (ctl *CatalogController) GetProduct(c *gin.Context) {
	p, err := ctl.Service.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product retrieved successfully.", p)
}

func (ctl *CatalogController) UpdateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := ctl.Service.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully.", p)
}

func (ctl *CatalogController) DeleteProduct(c *gin.Context) {
	if err := ctl.Service.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully.", nil)
}

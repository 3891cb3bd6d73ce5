package controller

import (
	"context"
	"net/http"
	"strconv"

	"storefront-service/internal/dto"
	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderService interface {
	CreateOrder(ctx context.Context, authUserID string, req dto.CreateOrderRequest) (*service.CreateOrderResult, error)
	ListOrders(ctx context.Context, q dto.OrderListQuery) (*service.OrderPage, error)
	ListUserOrders(ctx context.Context, rawUserID string, page, limit int) (*service.OrderPage, error)
	GetOrder(ctx context.Context, rawID string) (*model.Order, error)
	GetOrdersByIDs(ctx context.Context, rawIDs []string) ([]model.Order, error)
	UpdateStatus(ctx context.Context, rawID, to, note string) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, rawID, status string) (*model.Order, error)
	DeleteOrder(ctx context.Context, rawID string) error
}

type OrderController struct {
	Service OrderService
}

func NewOrderController(s OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /orders — token opcional: sin token es checkout como invitado
func (ctl *OrderController) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := ctl.Service.CreateOrder(c.Request.Context(), c.GetString(middleware.UserIDKey), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Order created successfully", res)
}

// GET /orders — admin only
func (ctl *OrderController) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := ctl.Service.ListOrders(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", page)
}

// GET /orders/user/:userId — dueño o admin
func (ctl *OrderController) ListByUser(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := ctl.Service.ListUserOrders(c.Request.Context(), c.Param("userId"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", res)
}

// GET /orders/:id — requiere token
func (ctl *OrderController) Get(c *gin.Context) {
	o, err := ctl.Service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	// Validación de acceso
	if !middleware.IsAdmin(c) && o.UserID.Hex() != c.GetString(middleware.UserIDKey) {
		fail(c, http.StatusForbidden, "you cannot view another user's order")
		return
	}
	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// POST /orders/multiple — un cliente sólo recibe las suyas
func (ctl *OrderController) GetMultiple(c *gin.Context) {
	var req dto.OrderIDsRequest
	if !bindJSON(c, &req) {
		return
	}
	orders, err := ctl.Service.GetOrdersByIDs(c.Request.Context(), req.OrderIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	if !middleware.IsAdmin(c) {
		uid := c.GetString(middleware.UserIDKey)
		own := orders[:0]
		for _, o := range orders {
			if o.UserID.Hex() == uid {
				own = append(own, o)
			}
		}
		orders = own
	}
	if orders == nil {
		orders = []model.Order{}
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", orders)
}

// PUT /orders/:id/status — admin only
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := ctl.Service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.AdminNote)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order status updated successfully", o)
}

// PUT /orders/:id/payment-status — admin only
func (ctl *OrderController) UpdatePaymentStatus(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := ctl.Service.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Payment status updated successfully", o)
}

// DELETE /orders/:id — admin only
func (ctl *OrderController) Delete(c *gin.Context) {
	if err := ctl.Service.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order deleted successfully", nil)
}

package controller

import (
	"storefront-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers de un tenant, montados bajo su prefijo.
type Controllers struct {
	Orders   *OrderController
	Payments *PaymentController
	Users    *UserController
	Coupons  *CouponController
	Shipping *ShippingController
	Catalog  *CatalogController
}

func RegisterRoutes(g *gin.RouterGroup, auth middleware.TokenValidator, ctl Controllers) {
	authed := middleware.AuthMiddleware(auth)
	admin := middleware.AdminOnly()

	// Órdenes
	g.POST("/orders", middleware.OptionalAuth(auth), ctl.Orders.Create)
	orders := g.Group("/orders", authed)
	orders.GET("", admin, ctl.Orders.List)
	orders.POST("/multiple", ctl.Orders.GetMultiple)
	orders.GET("/user/:userId", middleware.OwnerOrAdmin("userId"), ctl.Orders.ListByUser)
	orders.GET("/:id", ctl.Orders.Get)
	orders.PUT("/:id/status", admin, ctl.Orders.UpdateStatus)
	orders.PUT("/:id/payment-status", admin, ctl.Orders.UpdatePaymentStatus)
	orders.DELETE("/:id", admin, ctl.Orders.Delete)

	// Pagos
	g.POST("/payment/stk", ctl.Payments.InitiateSTK)
	g.POST("/payment/result", ctl.Payments.Callback)
	g.GET("/payment/events", ctl.Payments.Events)
	g.GET("/payment/transactions/:id", authed, admin, ctl.Payments.GetTransaction)

	// Usuarios
	g.POST("/users/register", ctl.Users.Register)
	g.POST("/users/login", ctl.Users.Login)
	users := g.Group("/users", authed)
	users.GET("", admin, ctl.Users.List)
	users.GET("/:id", middleware.OwnerOrAdmin("id"), ctl.Users.Get)
	users.DELETE("/:id", admin, ctl.Users.Delete)
	users.POST("/:id/addresses", middleware.OwnerOrAdmin("id"), ctl.Users.AddAddress)
	users.PUT("/:id/addresses/:addressId", middleware.OwnerOrAdmin("id"), ctl.Users.UpdateAddress)
	users.DELETE("/:id/addresses/:addressId", middleware.OwnerOrAdmin("id"), ctl.Users.DeleteAddress)

	g.POST("/password/request-reset", ctl.Users.RequestPasswordReset)
	g.POST("/password/verify-reset", ctl.Users.VerifyResetCode)
	g.POST("/password/reset", ctl.Users.ResetPassword)
	g.POST("/verification/request", authed, ctl.Users.RequestVerification)
	g.POST("/verification/confirm", authed, ctl.Users.ConfirmVerification)

	// Cupones
	g.GET("/coupons", ctl.Coupons.List)
	g.GET("/coupons/:id", ctl.Coupons.Get)
	g.POST("/coupons/check", ctl.Coupons.Check)
	g.POST("/coupons", authed, admin, ctl.Coupons.Create)
	g.PUT("/coupons/:id", authed, admin, ctl.Coupons.Update)
	g.DELETE("/coupons/:id", authed, admin, ctl.Coupons.Delete)

	// Envíos
	g.GET("/shipping-fees", ctl.Shipping.List)
	g.GET("/shipping-fees/:id", ctl.Shipping.Get)
	g.POST("/shipping-fees", authed, admin, ctl.Shipping.Create)
	g.PUT("/shipping-fees/:id", authed, admin, ctl.Shipping.Update)
	g.PATCH("/shipping-fees/:id/toggle-cod", authed, admin, ctl.Shipping.ToggleCOD)
	g.DELETE("/shipping-fees/:id", authed, admin, ctl.Shipping.Delete)

	// Catálogo
	g.GET("/categories", ctl.Catalog.ListCategories)
	g.GET("/categories/:id", ctl.Catalog.GetCategory)
	g.POST("/categories", authed, admin, ctl.Catalog.CreateCategory)
	g.PUT("/categories/:id", authed, admin, ctl.Catalog.UpdateCategory)
	g.DELETE("/categories/:id", authed, admin, ctl.Catalog.DeleteCategory)

	g.GET("/products", ctl.Catalog.ListProducts)
	g.GET("/products/:id", ctl.Catalog.GetProduct)
	g.POST("/products", authed, admin, ctl.Catalog.CreateProduct)
	g.PUT("/products/:id", authed, admin, ctl.Catalog.UpdateProduct)
	g.DELETE("/products/:id", authed, admin, ctl.Catalog.DeleteProduct)
}

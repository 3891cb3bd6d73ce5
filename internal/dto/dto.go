// dto.go
package dto

import "time"

// AddressDTO dirección de envío o facturación
type AddressDTO struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Apartment  string `json:"apartment"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

type OrderItemDTO struct {
	ProductID  string   `json:"productId" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	Image      string   `json:"image"`
	Price      float64  `json:"price" binding:"gt=0"`
	Quantity   int      `json:"quantity" binding:"gt=0"`
	OfferPrice *float64 `json:"offerPrice" binding:"omitempty,gte=0"`
}

// CustomerDTO datos del comprador para el checkout como invitado
type CustomerDTO struct {
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone"`
	AccountType     string `json:"accountType" binding:"omitempty,oneof=personal business"`
	CompanyName     string `json:"companyName"`
	BusinessAddress string `json:"businessAddress"`
	KRAPin          string `json:"kraPin"`
}

type CreditTermsDTO struct {
	CreditDays    int    `json:"creditDays" binding:"gt=0"`
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=cheque bank_transfer mpesa cash"`
}

type CouponDTO struct {
	Code            string  `json:"code" binding:"required"`
	DiscountType    string  `json:"discountType" binding:"required,oneof=fixed percentage"`
	DiscountAmount  float64 `json:"discountAmount" binding:"gte=0"`
	AppliedDiscount float64 `json:"appliedDiscount" binding:"gte=0"`
}

type MpesaTransactionDTO struct {
	TransactionID string  `json:"transactionId" binding:"required"`
	Phone         string  `json:"phone"`
	Amount        float64 `json:"amount" binding:"gte=0"`
}

// CreateOrderRequest los totales vienen calculados por el cliente y se re-validan.
type CreateOrderRequest struct {
	Customer         CustomerDTO          `json:"customer"`
	Items            []OrderItemDTO       `json:"items" binding:"required,min=1,dive"`
	ShippingAddress  AddressDTO           `json:"shippingAddress"`
	BillingAddress   *AddressDTO          `json:"billingAddress"`
	ShippingMethodID string               `json:"shippingMethod" binding:"required"`
	PaymentMethod    string               `json:"paymentMethod" binding:"required,oneof=mpesa cod credit"`
	Coupon           *CouponDTO           `json:"coupon"`
	CreditTerms      *CreditTermsDTO      `json:"creditTerms"`
	MpesaTransaction *MpesaTransactionDTO `json:"mpesaTransaction"`
	PaymentReference string               `json:"paymentReference"`
	Subtotal         float64              `json:"subtotal"`
	Discount         float64              `json:"discount"`
	ShippingFee      float64              `json:"shippingFee"`
	Total            float64              `json:"total"`
}

type OrderListQuery struct {
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentMethod string `form:"paymentMethod" binding:"omitempty,oneof=mpesa cod credit"`
	Page          int    `form:"page" binding:"omitempty,gte=1"`
	Limit         int    `form:"limit" binding:"omitempty,gte=1"`
}

type OrderIDsRequest struct {
	OrderIDs []string `json:"orderIds"`
}

type UpdateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"adminNote"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

type STKRequest struct {
	Phone     string  `json:"phone" binding:"required"`
	Amount    float64 `json:"amount" binding:"gt=0"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email" binding:"omitempty,email"`
	Reference string  `json:"reference"`
}

type CouponRequest struct {
	CouponCode            string    `json:"couponCode" binding:"required"`
	DiscountType          string    `json:"discountType" binding:"required,oneof=fixed percentage"`
	DiscountAmount        float64   `json:"discountAmount" binding:"gte=0"`
	MinimumPurchaseAmount float64   `json:"minimumPurchaseAmount" binding:"gte=0"`
	EndDate               time.Time `json:"endDate" binding:"required"`
	Status                string    `json:"status" binding:"omitempty,oneof=active inactive"`
	ApplicableCategory    string    `json:"applicableCategory"`
	ApplicableProduct     string    `json:"applicableProduct"`
}

type CheckCouponRequest struct {
	CouponCode     string   `json:"couponCode" binding:"required"`
	ProductIDs     []string `json:"productIds"`
	PurchaseAmount float64  `json:"purchaseAmount" binding:"gte=0"`
}

type ShippingFeeRequest struct {
	Destination   string  `json:"destination" binding:"required"`
	PickupStation string  `json:"pickupStation"`
	Distance      float64 `json:"distance" binding:"gte=0"`
	Amount        float64 `json:"amount" binding:"gte=0"`
	DeliveryTime  string  `json:"deliveryTime"`
	CODAvailable  bool    `json:"codAvailable"`
}

type CategoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Image string `json:"image" binding:"omitempty,url"`
}

type ProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity" binding:"gte=0"`
	Price       float64  `json:"price" binding:"gt=0"`
	OfferPrice  *float64 `json:"offerPrice" binding:"omitempty,gte=0"`
	CategoryID  string   `json:"proCategoryId" binding:"required"`
	Images      []string `json:"images" binding:"omitempty,dive,url"`
}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3"`
	Email           string `json:"email" binding:"required,email"`
	PhoneNumber     string `json:"phoneNumber" binding:"required"`
	Password        string `json:"password" binding:"required,min=6"`
	AccountType     string `json:"accountType" binding:"omitempty,oneof=personal business"`
	CompanyName     string `json:"companyName"`
	BusinessAddress string `json:"businessAddress"`
	KRAPin          string `json:"kraPin"`
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// AddressRequest kind: shipping (default) o billing
type AddressRequest struct {
	Kind    string     `json:"kind" binding:"omitempty,oneof=shipping billing"`
	Address AddressDTO `json:"address"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type ConfirmVerificationRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

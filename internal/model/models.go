// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Estados de la orden
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Estados de pago
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Medios de pago aceptados
const (
	MethodMpesa  = "mpesa"
	MethodCOD    = "cod"
	MethodCredit = "credit"
)

type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber string             `bson:"order_number" json:"orderNumber"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	Customer    Customer           `bson:"customer" json:"customer"`
	Items       []OrderItem        `bson:"items" json:"items"`

	Subtotal    float64 `bson:"subtotal" json:"subtotal"`
	Discount    float64 `bson:"discount" json:"discount"`
	ShippingFee float64 `bson:"shipping_fee" json:"shippingFee"`
	Total       float64 `bson:"total" json:"total"`

	OrderStatus   string       `bson:"order_status" json:"orderStatus"`
	PaymentMethod string       `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus string       `bson:"payment_status" json:"paymentStatus"`
	CreditTerms   *CreditTerms `bson:"credit_terms,omitempty" json:"creditTerms,omitempty"`

	ShippingAddress Address          `bson:"shipping_address" json:"shippingAddress"`
	BillingAddress  Address          `bson:"billing_address" json:"billingAddress"`
	ShippingMethod  ShippingSnapshot `bson:"shipping_method" json:"shippingMethod"`

	Coupon           *AppliedCoupon    `bson:"coupon,omitempty" json:"coupon,omitempty"`
	MpesaTransaction *MpesaTransaction `bson:"mpesa_transaction,omitempty" json:"mpesaTransaction,omitempty"`
	// referencia del STK push; el callback la trae en metadata.reference
	PaymentReference string `bson:"payment_reference,omitempty" json:"paymentReference,omitempty"`

	AdminNote     string  `bson:"admin_note,omitempty" json:"adminNote,omitempty"`
	LoyaltyPoints float64 `bson:"loyalty_points,omitempty" json:"loyaltyPoints,omitempty"`

	// false mientras la confirmación no haya salido; el barrido la reintenta
	NotificationSent bool `bson:"notification_sent" json:"notificationSent"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

type OrderItem struct {
	ProductID  primitive.ObjectID `bson:"product_id" json:"productId"`
	Name       string             `bson:"name" json:"name"`
	Image      string             `bson:"image,omitempty" json:"image,omitempty"`
	Price      float64            `bson:"price" json:"price"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	OfferPrice *float64           `bson:"offer_price,omitempty" json:"offerPrice,omitempty"`
}

// Customer es la foto del comprador al momento de la compra.
type Customer struct {
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type CreditTerms struct {
	CreditDays    int    `bson:"credit_days" json:"creditDays"`
	PaymentMethod string `bson:"payment_method" json:"paymentMethod"` // cheque, bank_transfer, mpesa, cash
}

type ShippingSnapshot struct {
	ID           primitive.ObjectID `bson:"id" json:"id"`
	Destination  string             `bson:"destination" json:"destination"`
	DeliveryTime string             `bson:"delivery_time" json:"deliveryTime"`
}

type AppliedCoupon struct {
	Code            string  `bson:"code" json:"code"`
	DiscountType    string  `bson:"discount_type" json:"discountType"`
	DiscountAmount  float64 `bson:"discount_amount" json:"discountAmount"`
	AppliedDiscount float64 `bson:"applied_discount" json:"appliedDiscount"`
}

type MpesaTransaction struct {
	TransactionID string  `bson:"transaction_id" json:"transactionId"`
	Phone         string  `bson:"phone" json:"phone"`
	Amount        float64 `bson:"amount" json:"amount"`
}

// IsTerminal indica si la orden ya no admite cambios de estado.
func IsTerminal(status string) bool {
	return status == OrderDelivered || status == OrderCancelled
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CouponFixed      = "fixed"
	CouponPercentage = "percentage"

	CouponActive   = "active"
	CouponInactive = "inactive"
)

type Coupon struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Code                  string              `bson:"code" json:"couponCode"`
	DiscountType          string              `bson:"discount_type" json:"discountType"`
	DiscountAmount        float64             `bson:"discount_amount" json:"discountAmount"`
	MinimumPurchaseAmount float64             `bson:"minimum_purchase_amount" json:"minimumPurchaseAmount"`
	EndDate               time.Time           `bson:"end_date" json:"endDate"`
	Status                string              `bson:"status" json:"status"`
	ApplicableCategory    *primitive.ObjectID `bson:"applicable_category,omitempty" json:"applicableCategory,omitempty"`
	ApplicableProduct     *primitive.ObjectID `bson:"applicable_product,omitempty" json:"applicableProduct,omitempty"`
	CreatedAt             time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt             time.Time           `bson:"updated_at" json:"updatedAt"`
}

// Expired compara contra endDate sin mirar el status.
func (c *Coupon) Expired(now time.Time) bool {
	return !c.EndDate.After(now)
}

type ShippingFee struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Destination   string             `bson:"destination" json:"destination"`
	PickupStation string             `bson:"pickup_station,omitempty" json:"pickupStation,omitempty"`
	Distance      float64            `bson:"distance" json:"distance"`
	Amount        float64            `bson:"amount" json:"amount"`
	DeliveryTime  string             `bson:"delivery_time" json:"deliveryTime"`
	CODAvailable  bool               `bson:"cod_available" json:"codAvailable"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

const DefaultDeliveryTime = "Same Day Delivery"

type Category struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Slug      string             `bson:"slug" json:"slug"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Price       float64            `bson:"price" json:"price"`
	OfferPrice  *float64           `bson:"offer_price,omitempty" json:"offerPrice,omitempty"`
	CategoryID  primitive.ObjectID `bson:"category_id" json:"proCategoryId"`
	Images      []string           `bson:"images" json:"images"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

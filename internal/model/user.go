package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AccountPersonal = "personal"
	AccountBusiness = "business"

	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// MaxSavedAddresses es el tope de direcciones guardadas por cuenta.
const MaxSavedAddresses = 3

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PhoneNumber  string             `bson:"phone_number" json:"phoneNumber"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	AccountType  string             `bson:"account_type" json:"accountType"`
	Role         string             `bson:"role" json:"role"`

	// Solo cuentas business
	CompanyName     string `bson:"company_name,omitempty" json:"companyName,omitempty"`
	BusinessAddress string `bson:"business_address,omitempty" json:"businessAddress,omitempty"`
	KRAPin          string `bson:"kra_pin,omitempty" json:"kraPin,omitempty"`

	ShippingAddresses []Address            `bson:"shipping_addresses" json:"shippingAddresses"`
	BillingAddresses  []Address            `bson:"billing_addresses" json:"billingAddresses"`
	Orders            []primitive.ObjectID `bson:"orders" json:"orders"`
	LoyaltyPoints     float64              `bson:"loyalty_points" json:"loyaltyPoints"`

	EmailVerified            bool       `bson:"email_verified" json:"emailVerified"`
	VerificationCodeHash     string     `bson:"verification_code_hash,omitempty" json:"-"`
	VerificationExpiresAt    *time.Time `bson:"verification_expires_at,omitempty" json:"-"`
	VerificationRequestCount int        `bson:"verification_request_count" json:"-"`
	LastVerificationRequest  *time.Time `bson:"last_verification_request,omitempty" json:"-"`

	ResetCodeHash    string     `bson:"reset_code_hash,omitempty" json:"-"`
	ResetExpiresAt   *time.Time `bson:"reset_expires_at,omitempty" json:"-"`
	LastResetRequest *time.Time `bson:"last_reset_request,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Address struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName  string             `bson:"first_name" json:"firstName"`
	LastName   string             `bson:"last_name" json:"lastName"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string             `bson:"address" json:"address"`
	Apartment  string             `bson:"apartment,omitempty" json:"apartment,omitempty"`
	City       string             `bson:"city" json:"city"`
	PostalCode string             `bson:"postal_code" json:"postalCode"`
}

// SameLocation compara dos direcciones por calle, ciudad y código postal.
func (a Address) SameLocation(b Address) bool {
	return a.Address == b.Address && a.City == b.City && a.PostalCode == b.PostalCode
}

// Credentials de una cuenta creada en el checkout como invitado.
// La contraseña en claro sólo vive en memoria para el mail de confirmación.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Estados que reporta el proveedor de mobile money
const (
	TxSuccess  = "Success"
	TxFailed   = "Failed"
	TxReceived = "Received"
)

// Transaction es el registro durable de cada callback del proveedor.
type Transaction struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TransactionID string             `bson:"transaction_id" json:"transactionId"`
	Status        string             `bson:"status" json:"status"`
	Reference     string             `bson:"reference,omitempty" json:"reference,omitempty"`
	// CheckoutReference la que mandamos en la metadata del STK push
	CheckoutReference string     `bson:"checkout_reference,omitempty" json:"checkoutReference,omitempty"`
	PhoneNumber       string     `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Amount            float64    `bson:"amount" json:"amount"`
	Currency          string     `bson:"currency,omitempty" json:"currency,omitempty"`
	TillNumber        string     `bson:"till_number,omitempty" json:"tillNumber,omitempty"`
	System            string     `bson:"system,omitempty" json:"system,omitempty"`
	Errors            []string   `bson:"errors,omitempty" json:"errors,omitempty"`
	InitiatedAt       *time.Time `bson:"initiated_at,omitempty" json:"initiatedAt,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updatedAt"`
}

// PaymentEvent es lo que se empuja a los clientes en vivo.
type PaymentEvent struct {
	TransactionID string         `json:"transactionId"`
	Status        string         `json:"status"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
}

package mpesa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/model"

	"github.com/shopspring/decimal"
)

var ErrMalformedCallback = errors.New("malformed callback payload")

// Callback es el push que manda el proveedor a /payment/result.
type Callback struct {
	Data struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Status         string         `json:"status"`
			InitiationTime string         `json:"initiation_time"`
			Metadata       map[string]any `json:"metadata"`
			Event          struct {
				Type     string `json:"type"`
				Resource *struct {
					Reference         string          `json:"reference"`
					SenderPhoneNumber string          `json:"sender_phone_number"`
					Amount            decimal.Decimal `json:"amount"`
					Currency          string          `json:"currency"`
					TillNumber        string          `json:"till_number"`
					System            string          `json:"system"`
					Status            string          `json:"status"`
				} `json:"resource"`
				Errors json.RawMessage `json:"errors"`
			} `json:"event"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseCallback decodifica y exige data.id y data.attributes.status.
func ParseCallback(raw []byte) (*Callback, error) {
	var cb Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	if strings.TrimSpace(cb.Data.ID) == "" || strings.TrimSpace(cb.Data.Attributes.Status) == "" {
		return nil, fmt.Errorf("%w: missing data.id or data.attributes.status", ErrMalformedCallback)
	}
	return &cb, nil
}

// Transaction arma el registro a persistir.
func (cb *Callback) Transaction() *model.Transaction {
	a := cb.Data.Attributes
	tx := &model.Transaction{
		TransactionID: cb.Data.ID,
		Status:        a.Status,
		Errors:        errorList(a.Event.Errors),
	}
	if ref, ok := a.Metadata["reference"].(string); ok {
		tx.CheckoutReference = strings.TrimSpace(ref)
	}
	if t, err := time.Parse(time.RFC3339, a.InitiationTime); err == nil {
		t = t.UTC()
		tx.InitiatedAt = &t
	}
	if r := a.Event.Resource; r != nil {
		tx.Reference = r.Reference
		tx.PhoneNumber = r.SenderPhoneNumber
		tx.Amount = r.Amount.InexactFloat64()
		tx.Currency = r.Currency
		tx.TillNumber = r.TillNumber
		tx.System = r.System
	}
	return tx
}

// errors puede venir como string, lista de strings o null.
func errorList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return []string{string(raw)}
}

// Package mpesa habla con el gateway de mobile money (API estilo Kopo Kopo):
// token OAuth2 client-credentials y pedido de STK push.
package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrInvalidPhone = errors.New("invalid phone number")

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TillNumber   string
	CallbackURL  string
	Timeout      time.Duration
}

type Client struct {
	cfg   Config
	oauth clientcredentials.Config
	http  *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	cfg.BaseURL = base

	return &Client{
		cfg: cfg,
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     base + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type Subscriber struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
}

type STKRequest struct {
	Subscriber Subscriber
	Amount     decimal.Decimal
	Reference  string
}

type STKResult struct {
	// Location es la URL del pago creado en el proveedor
	Location string `json:"location"`
}

type stkBody struct {
	PaymentChannel string            `json:"payment_channel"`
	TillNumber     string            `json:"till_number"`
	Subscriber     Subscriber        `json:"subscriber"`
	Amount         stkAmount         `json:"amount"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Links          stkLinks          `json:"_links"`
}

type stkAmount struct {
	Currency string      `json:"currency"`
	Value    json.Number `json:"value"`
}

type stkLinks struct {
	CallbackURL string `json:"callback_url"`
}

// InitiateSTK pide un token nuevo y dispara el STK push. No reintenta:
// el cliente decide si vuelve a pedir el pago.
func (c *Client) InitiateSTK(ctx context.Context, req STKRequest) (*STKResult, error) {
	phone, err := NormalizePhone(req.Subscriber.PhoneNumber)
	if err != nil {
		return nil, err
	}
	req.Subscriber.PhoneNumber = phone

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	token, err := c.oauth.Token(context.WithValue(ctx, oauth2.HTTPClient, c.http))
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	body := stkBody{
		PaymentChannel: "M-PESA STK Push",
		TillNumber:     c.cfg.TillNumber,
		Subscriber:     req.Subscriber,
		Amount:         stkAmount{Currency: "KES", Value: json.Number(req.Amount.String())},
		Links:          stkLinks{CallbackURL: c.cfg.CallbackURL},
	}
	if req.Reference != "" {
		body.Metadata = map[string]string{"reference": req.Reference}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/incoming_payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	token.SetAuthHeader(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stk request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("provider responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return &STKResult{Location: resp.Header.Get("Location")}, nil
}

// NormalizePhone lleva 07XXXXXXXX, 7XXXXXXXX, 2547XXXXXXXX y +2547XXXXXXXX a +2547XXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	p = strings.TrimPrefix(p, "+")

	switch {
	case strings.HasPrefix(p, "254"):
	case strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case len(p) == 9:
		p = "254" + p
	}

	if len(p) != 12 {
		return "", ErrInvalidPhone
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return "+" + p, nil
}

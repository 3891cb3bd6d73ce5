package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type captured struct {
	msgs []*mail.Msg
	err  error
}

func (c *captured) send(_ context.Context, msgs ...*mail.Msg) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func testMailer(t *testing.T, cfg Config) (*Mailer, *captured) {
	t.Helper()
	m, err := New(cfg)
	require.NoError(t, err)
	c := &captured{}
	m.send = c.send
	return m, c
}

func body(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func sampleOrder() *model.Order {
	return &model.Order{
		OrderNumber: "ORD-20240601-0001",
		Customer:    model.Customer{Username: "wanjiru", Email: "wanjiru@example.com"},
		Items:       []model.OrderItem{{Name: "Arabica 500g", Price: 500, Quantity: 2}},
		Subtotal:    1000,
		ShippingFee: 100,
		Total:       1100,
		OrderStatus: model.OrderShipped,
		CreatedAt:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestOrderConfirmation_WithCredentialsAndSalesBcc(t *testing.T) {
	m, c := testMailer(t, Config{Brand: "Arobisca", From: "shop@arobisca.test", SalesEmail: "sales@arobisca.test"})

	err := m.OrderConfirmation(context.Background(), sampleOrder(), &model.Credentials{Username: "wanjiru", Password: "Xy7!pQ2mZr9k"})
	require.NoError(t, err)
	require.Len(t, c.msgs, 1)

	msg := c.msgs[0]
	assert.Equal(t, []string{"<wanjiru@example.com>"}, msg.GetToString())
	assert.Equal(t, []string{"<sales@arobisca.test>"}, msg.GetBccString())
	raw := body(t, msg)
	assert.Equal(t, []string{"Arobisca order confirmation #ORD-20240601-0001"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Contains(t, raw, "Xy7!pQ2mZr9k")
	assert.Contains(t, raw, "KES 1100.00")
}

func TestOrderConfirmation_RetryHasNoCredentials(t *testing.T) {
	m, c := testMailer(t, Config{Brand: "Playbox", From: "shop@playbox.test"})

	require.NoError(t, m.OrderConfirmation(context.Background(), sampleOrder(), nil))
	require.Len(t, c.msgs, 1)
	assert.NotContains(t, body(t, c.msgs[0]), "Password:")
	assert.Empty(t, c.msgs[0].GetBccString())
}

func TestStatusUpdate(t *testing.T) {
	m, c := testMailer(t, Config{Brand: "Playbox", From: "shop@playbox.test"})

	require.NoError(t, m.StatusUpdate(context.Background(), sampleOrder()))
	require.Len(t, c.msgs, 1)
	assert.Equal(t, []string{"Order #ORD-20240601-0001 - SHIPPED Update"}, c.msgs[0].GetGenHeader(mail.HeaderSubject))
}

func TestSendErrors(t *testing.T) {
	m, c := testMailer(t, Config{Brand: "Arobisca", From: "shop@arobisca.test"})
	c.err = errors.New("relay down")

	err := m.StatusUpdate(context.Background(), sampleOrder())
	assert.ErrorContains(t, err, "relay down")

	o := sampleOrder()
	o.Customer.Email = ""
	assert.ErrorIs(t, m.OrderConfirmation(context.Background(), o, nil), ErrNoRecipient)
}

func TestCodes(t *testing.T) {
	m, c := testMailer(t, Config{Brand: "Arobisca", From: "shop@arobisca.test"})
	u := &model.User{Username: "amina", Email: "amina@example.com"}

	require.NoError(t, m.PasswordResetCode(context.Background(), u, "482913"))
	require.NoError(t, m.VerificationCode(context.Background(), u, "100200"))
	require.Len(t, c.msgs, 2)
	assert.Contains(t, body(t, c.msgs[0]), "482913")
	assert.Contains(t, body(t, c.msgs[1]), "verify your email address")
}

func TestDisabledMailerLogsOnly(t *testing.T) {
	m, err := New(Config{Brand: "Arobisca"})
	require.NoError(t, err)
	assert.NoError(t, m.OrderConfirmation(context.Background(), sampleOrder(), nil))
}

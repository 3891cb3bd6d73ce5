package rabbit

import "storefront-service/internal/model"

const (
	OrderPlacedExchange = "order_placed"
	paymentEventsPrefix = "payment_events."
)

// PaymentEventsExchange fanout propio de cada tenant.
func PaymentEventsExchange(tenant string) string {
	return paymentEventsPrefix + tenant
}

// Mismo sobre que usan los demás servicios: correlation_id + exchange + message.
type PaymentEventMessage struct {
	CorrelationID string             `json:"correlation_id"`
	Exchange      string             `json:"exchange"`
	RoutingKey    string             `json:"routing_key"`
	Message       model.PaymentEvent `json:"message"`
}

type OrderArticle struct {
	ArticleID string `json:"articleId"`
	Quantity  int    `json:"quantity"`
}

type OrderPlaced struct {
	Tenant        string         `json:"tenant"`
	OrderID       string         `json:"orderId"`
	OrderNumber   string         `json:"orderNumber"`
	UserID        string         `json:"userId"`
	Total         float64        `json:"total"`
	PaymentMethod string         `json:"paymentMethod"`
	Articles      []OrderArticle `json:"articles"`
}

type OrderPlacedMessage struct {
	CorrelationID string      `json:"correlation_id"`
	Exchange      string      `json:"exchange"`
	RoutingKey    string      `json:"routing_key"`
	Message       OrderPlaced `json:"message"`
}

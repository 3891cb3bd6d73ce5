package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/model"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Channel es la parte de *amqp091.Channel que usa el publisher.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher un amqp091.Channel no es seguro para publicar desde varias
// goroutines, de ahí el mutex.
type Publisher struct {
	mu sync.Mutex
	ch Channel
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) publish(ctx context.Context, exchange string, body any, correlationID string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", exchange, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, exchange, "", false, false, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		Timestamp:     time.Now(),
		Body:          payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", exchange, err)
	}
	return nil
}

// PublishOrderPlaced avisa a otros servicios que se creó una orden.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, tenant string, o *model.Order) error {
	msg := OrderPlacedMessage{
		CorrelationID: uuid.NewString(),
		Exchange:      OrderPlacedExchange,
		Message: OrderPlaced{
			Tenant:        tenant,
			OrderID:       o.ID.Hex(),
			OrderNumber:   o.OrderNumber,
			UserID:        o.UserID.Hex(),
			Total:         o.Total,
			PaymentMethod: o.PaymentMethod,
		},
	}
	for _, it := range o.Items {
		msg.Message.Articles = append(msg.Message.Articles, OrderArticle{ArticleID: it.ProductID.Hex(), Quantity: it.Quantity})
	}
	return p.publish(ctx, OrderPlacedExchange, msg, msg.CorrelationID)
}

// PaymentEvents devuelve el Broadcaster de un tenant: los eventos viajan por
// el broker y cada instancia los reparte en su hub local.
func (p *Publisher) PaymentEvents(tenant string) *PaymentEventPublisher {
	return &PaymentEventPublisher{p: p, exchange: PaymentEventsExchange(tenant)}
}

type PaymentEventPublisher struct {
	p        *Publisher
	exchange string
}

func (b *PaymentEventPublisher) Broadcast(ctx context.Context, ev model.PaymentEvent) error {
	msg := PaymentEventMessage{
		CorrelationID: uuid.NewString(),
		Exchange:      b.exchange,
		Message:       ev,
	}
	return b.p.publish(ctx, b.exchange, msg, msg.CorrelationID)
}

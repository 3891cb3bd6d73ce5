package rabbit

import (
	"encoding/json"
	"fmt"

	"storefront-service/internal/model"

	"github.com/rs/zerolog/log"
)

// LocalHub recibe los eventos ya consumidos (live.Hub).
type LocalHub interface {
	Publish(ev model.PaymentEvent) int
}

type PaymentEventConsumer struct {
	tenant string
	hub    LocalHub
}

func NewPaymentEventConsumer(tenant string, hub LocalHub) *PaymentEventConsumer {
	return &PaymentEventConsumer{tenant: tenant, hub: hub}
}

func (c *PaymentEventConsumer) Handle(msg []byte) error {
	var event PaymentEventMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		log.Error().Err(err).Str("tenant", c.tenant).Msg("[Rabbit] error parseando payment_event")
		return err
	}
	if event.Message.TransactionID == "" {
		log.Warn().Str("tenant", c.tenant).Str("correlation_id", event.CorrelationID).Msg("[Rabbit] payment_event sin transactionId")
		return fmt.Errorf("payment event without transactionId")
	}

	n := c.hub.Publish(event.Message)
	log.Debug().Str("tenant", c.tenant).Str("transaction_id", event.Message.TransactionID).
		Str("correlation_id", event.CorrelationID).Int("subscribers", n).Msg("[Rabbit] payment_event repartido")
	return nil
}

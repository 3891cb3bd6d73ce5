// setup.go
package rabbit

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// DeclareExchanges crea los fanout que usa el servicio. Es idempotente.
func DeclareExchanges(ch *amqp091.Channel, tenants []string) error {
	names := []string{OrderPlacedExchange}
	for _, t := range tenants {
		names = append(names, PaymentEventsExchange(t))
	}
	for _, name := range names {
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declarando exchange %s: %w", name, err)
		}
	}
	return nil
}

// SetupPaymentEventsConsumer cada instancia se suscribe con su propia cola
// exclusiva, así todas reciben todos los eventos del tenant.
func SetupPaymentEventsConsumer(ch *amqp091.Channel, tenant string, hub LocalHub) error {
	consumer := NewPaymentEventConsumer(tenant, hub)
	exchange := PaymentEventsExchange(tenant)

	// 1. Declarar la queue (nombre generado por el broker)
	q, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declarando queue: %w", err)
	}

	// 2. Bindear al exchange fanout
	err = ch.QueueBind(
		q.Name,
		"", // fanout ignora routing key
		exchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("binding %s: %w", exchange, err)
	}

	// 3. Consumir
	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumiendo %s: %w", q.Name, err)
	}

	go func() {
		for m := range msgs {
			_ = consumer.Handle(m.Body)
		}
		log.Warn().Str("tenant", tenant).Msg("[Rabbit] canal de payment_events cerrado")
	}()

	log.Info().Str("tenant", tenant).Str("exchange", exchange).Msg("[Rabbit] suscrito a payment_events (fanout)")
	return nil
}

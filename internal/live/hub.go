package live

import (
	"context"
	"sync"

	"storefront-service/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 16

// Hub reparte eventos de pago a los clientes conectados por SSE.
// Entrega at-most-once: un suscriptor lento pierde eventos, no bloquea al resto.
type Hub struct {
	tenant string

	mu   sync.RWMutex
	subs map[string]chan model.PaymentEvent
}

func NewHub(tenant string) *Hub {
	return &Hub{tenant: tenant, subs: make(map[string]chan model.PaymentEvent)}
}

// Subscribe devuelve el id, el canal y la función para darse de baja.
func (h *Hub) Subscribe() (string, <-chan model.PaymentEvent, func()) {
	id := uuid.NewString()
	ch := make(chan model.PaymentEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return id, ch, cancel
}

// Publish entrega a todos sin bloquear. Devuelve cuántos lo recibieron.
func (h *Hub) Publish(ev model.PaymentEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			log.Warn().Str("tenant", h.tenant).Str("subscriber", id).Str("transaction_id", ev.TransactionID).
				Msg("suscriptor lento, evento descartado")
		}
	}
	return delivered
}

// Broadcast permite usar el hub directamente como destino de eventos cuando
// no hay broker configurado.
func (h *Hub) Broadcast(_ context.Context, ev model.PaymentEvent) error {
	h.Publish(ev)
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

package live

import (
	"context"
	"testing"

	"storefront-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub("arobisca")
	_, a, cancelA := h.Subscribe()
	_, b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	require.NoError(t, h.Broadcast(context.Background(), model.PaymentEvent{TransactionID: "tx-1", Status: model.TxSuccess}))

	assert.Equal(t, "tx-1", (<-a).TransactionID)
	assert.Equal(t, "tx-1", (<-b).TransactionID)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub("playbox")
	_, slow, cancel := h.Subscribe()
	defer cancel()

	for range subscriberBuffer + 5 {
		h.Publish(model.PaymentEvent{TransactionID: "tx"})
	}
	assert.Len(t, slow, subscriberBuffer)
}

func TestHub_CancelRemovesAndCloses(t *testing.T) {
	h := NewHub("playbox")
	id, ch, cancel := h.Subscribe()
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, h.Subscribers())
	_, open := <-ch
	assert.False(t, open)

	assert.Equal(t, 0, h.Publish(model.PaymentEvent{TransactionID: "tx"}))
}

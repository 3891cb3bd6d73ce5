package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memTransactions struct {
	mu  sync.Mutex
	txs map[string]model.Transaction
	err error
}

func (m *memTransactions) Upsert(_ context.Context, t *model.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.txs == nil {
		m.txs = map[string]model.Transaction{}
	}
	_, existed := m.txs[t.TransactionID]
	m.txs[t.TransactionID] = *t
	return !existed, nil
}

func (m *memTransactions) FindByTransactionID(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []model.PaymentEvent
	err    error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, ev model.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type stubProvider struct {
	res *mpesa.STKResult
	err error
	got mpesa.STKRequest
}

func (s *stubProvider) InitiateSTK(_ context.Context, req mpesa.STKRequest) (*mpesa.STKResult, error) {
	s.got = req
	return s.res, s.err
}

const successCallback = `{
  "data": {
    "id": "c1a2b3",
    "type": "incoming_payment",
    "attributes": {
      "status": "Success",
      "initiation_time": "2024-06-01T09:15:00+03:00",
      "event": {
        "type": "Buygoods Transaction",
        "resource": {
          "reference": "QF12ABC",
          "sender_phone_number": "+254712345678",
          "amount": "1100.00",
          "currency": "KES",
          "till_number": "000000",
          "system": "M-PESA",
          "status": "Received"
        },
        "errors": null
      }
    }
  }
}`

func seedMpesaOrder(t *testing.T, orders *memOrders, txID string) primitive.ObjectID {
	t.Helper()
	o := &model.Order{
		OrderNumber:      "ORD-20240601-0001",
		PaymentMethod:    model.MethodMpesa,
		PaymentStatus:    model.PaymentPending,
		OrderStatus:      model.OrderPending,
		MpesaTransaction: &model.MpesaTransaction{TransactionID: txID},
	}
	require.NoError(t, orders.Insert(context.Background(), o))
	return o.ID
}

func TestHandleCallback_RecordsReconcilesAndBroadcasts(t *testing.T) {
	txs := &memTransactions{}
	orders := newMemOrders()
	b := &recordingBroadcaster{}
	svc := NewPaymentService("arobisca", txs, orders, b, nil, time.Second)
	orderID := seedMpesaOrder(t, orders, "c1a2b3")

	tx, err := svc.HandleCallback(context.Background(), []byte(successCallback))
	require.NoError(t, err)
	assert.Equal(t, "c1a2b3", tx.TransactionID)
	assert.Equal(t, "QF12ABC", tx.Reference)
	assert.Equal(t, 1100.0, tx.Amount)

	stored, err := svc.GetTransaction(context.Background(), "c1a2b3")
	require.NoError(t, err)
	assert.Equal(t, model.TxSuccess, stored.Status)

	o, err := orders.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, o.PaymentStatus)

	require.Len(t, b.events, 1)
	assert.Equal(t, "Payment successful", b.events[0].Message)
	assert.Equal(t, "QF12ABC", b.events[0].Details["reference"])
}

func TestHandleCallback_RedeliveryIsIdempotent(t *testing.T) {
	txs := &memTransactions{}
	b := &recordingBroadcaster{}
	svc := NewPaymentService("arobisca", txs, newMemOrders(), b, nil, time.Second)

	for range 3 {
		_, err := svc.HandleCallback(context.Background(), []byte(successCallback))
		require.NoError(t, err)
	}
	assert.Len(t, txs.txs, 1)
	assert.Len(t, b.events, 3)
}

func TestHandleCallback_ReconcilesByReference(t *testing.T) {
	orders := newMemOrders()
	svc := NewPaymentService("arobisca", &memTransactions{}, orders, &recordingBroadcaster{}, nil, time.Second)
	orderID := seedMpesaOrder(t, orders, "QF12ABC")

	_, err := svc.HandleCallback(context.Background(), []byte(successCallback))
	require.NoError(t, err)

	o, _ := orders.FindByID(context.Background(), orderID)
	assert.Equal(t, model.PaymentPaid, o.PaymentStatus)
}

func stkCallback(txID, status, checkoutRef string) []byte {
	return []byte(fmt.Sprintf(`{
  "data": {
    "id": %q,
    "type": "incoming_payment",
    "attributes": {
      "status": %q,
      "initiation_time": "2024-06-01T09:15:00+03:00",
      "metadata": {"reference": %q},
      "event": {
        "type": "Buygoods Transaction",
        "resource": {
          "reference": "QF12ABC",
          "sender_phone_number": "+254712345678",
          "amount": "1100.00",
          "currency": "KES",
          "till_number": "000000",
          "system": "M-PESA",
          "status": "Received"
        },
        "errors": null
      }
    }
  }
}`, txID, status, checkoutRef))
}

func TestCheckout_STKOrderPaidByCallbackReference(t *testing.T) {
	f := newOrderFixture(t, false)
	f.notifier.On("OrderConfirmation", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	payments := NewPaymentService("playbox", &memTransactions{}, f.orders, &recordingBroadcaster{}, nil, time.Second)
	ctx := context.Background()

	req := guestOrder(f.feeID, "stk@example.com")
	req.PaymentReference = "STK-7781"
	res, err := f.svc.CreateOrder(ctx, "", req)
	require.NoError(t, err)
	require.Equal(t, model.PaymentPending, res.Order.PaymentStatus)
	require.Nil(t, res.Order.MpesaTransaction)

	tx, err := payments.HandleCallback(ctx, stkCallback("c1a2b3", model.TxSuccess, "STK-7781"))
	require.NoError(t, err)
	assert.Equal(t, "STK-7781", tx.CheckoutReference)

	o, err := f.orders.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, o.PaymentStatus)
	require.NotNil(t, o.MpesaTransaction)
	assert.Equal(t, "c1a2b3", o.MpesaTransaction.TransactionID)
	assert.Equal(t, 1100.0, o.MpesaTransaction.Amount)
}

func TestCheckout_FailedThenRetriedSTK(t *testing.T) {
	f := newOrderFixture(t, false)
	f.notifier.On("OrderConfirmation", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	payments := NewPaymentService("playbox", &memTransactions{}, f.orders, &recordingBroadcaster{}, nil, time.Second)
	ctx := context.Background()

	req := guestOrder(f.feeID, "retry-stk@example.com")
	req.PaymentReference = "STK-9001"
	res, err := f.svc.CreateOrder(ctx, "", req)
	require.NoError(t, err)

	_, err = payments.HandleCallback(ctx, stkCallback("att-1", model.TxFailed, "STK-9001"))
	require.NoError(t, err)
	o, _ := f.orders.FindByID(ctx, res.Order.ID)
	assert.Equal(t, model.PaymentFailed, o.PaymentStatus)

	_, err = payments.HandleCallback(ctx, stkCallback("att-2", model.TxSuccess, "STK-9001"))
	require.NoError(t, err)
	o, _ = f.orders.FindByID(ctx, res.Order.ID)
	assert.Equal(t, model.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, "att-2", o.MpesaTransaction.TransactionID)

	// un Failed tardío del primer intento no revierte el cobro
	_, err = payments.HandleCallback(ctx, stkCallback("att-1", model.TxFailed, "STK-9001"))
	require.NoError(t, err)
	o, _ = f.orders.FindByID(ctx, res.Order.ID)
	assert.Equal(t, model.PaymentPaid, o.PaymentStatus)
}

func TestCheckout_FailedCallbackRevertsDeclaredPayment(t *testing.T) {
	f := newOrderFixture(t, false)
	f.notifier.On("OrderConfirmation", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	payments := NewPaymentService("playbox", &memTransactions{}, f.orders, &recordingBroadcaster{}, nil, time.Second)
	ctx := context.Background()

	req := guestOrder(f.feeID, "declared@example.com")
	req.MpesaTransaction = &dto.MpesaTransactionDTO{TransactionID: "c1a2b3", Phone: "0712345678", Amount: 1100}
	res, err := f.svc.CreateOrder(ctx, "", req)
	require.NoError(t, err)
	require.Equal(t, model.PaymentPaid, res.Order.PaymentStatus)

	_, err = payments.HandleCallback(ctx, stkCallback("c1a2b3", model.TxFailed, ""))
	require.NoError(t, err)

	o, err := f.orders.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, o.PaymentStatus)
}

func TestHandleCallback_Malformed(t *testing.T) {
	txs := &memTransactions{}
	b := &recordingBroadcaster{}
	svc := NewPaymentService("arobisca", txs, newMemOrders(), b, nil, time.Second)

	for _, raw := range []string{`not json`, `{"data":{"attributes":{"status":"Success"}}}`, `{"data":{"id":"x"}}`} {
		_, err := svc.HandleCallback(context.Background(), []byte(raw))
		require.ErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, txs.txs)
	assert.Empty(t, b.events)
}

func TestHandleCallback_PersistenceFailure(t *testing.T) {
	b := &recordingBroadcaster{}
	svc := NewPaymentService("arobisca", &memTransactions{err: errBoom}, newMemOrders(), b, nil, time.Second)

	_, err := svc.HandleCallback(context.Background(), []byte(successCallback))
	require.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, b.events)
}

func TestHandleCallback_BroadcastFailureIsNotFatal(t *testing.T) {
	b := &recordingBroadcaster{err: errBoom}
	svc := NewPaymentService("arobisca", &memTransactions{}, newMemOrders(), b, nil, time.Second)

	_, err := svc.HandleCallback(context.Background(), []byte(successCallback))
	require.NoError(t, err)
}

func TestInitiateSTK(t *testing.T) {
	provider := &stubProvider{res: &mpesa.STKResult{Location: "https://sandbox.example/incoming_payments/abc"}}
	svc := NewPaymentService("playbox", &memTransactions{}, newMemOrders(), &recordingBroadcaster{}, provider, time.Second)

	res, err := svc.InitiateSTK(context.Background(), dto.STKRequest{Phone: "0712345678", Amount: 250.456, FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.example/incoming_payments/abc", res.Location)
	assert.Equal(t, "250.46", provider.got.Amount.StringFixed(2))
	assert.Equal(t, "Ann", provider.got.Subscriber.FirstName)
}

func TestInitiateSTK_Errors(t *testing.T) {
	ctx := context.Background()

	svc := NewPaymentService("playbox", &memTransactions{}, newMemOrders(), &recordingBroadcaster{}, nil, time.Second)
	_, err := svc.InitiateSTK(ctx, dto.STKRequest{Phone: "0712345678", Amount: 10})
	assert.ErrorIs(t, err, ErrUpstream)

	svc = NewPaymentService("playbox", &memTransactions{}, newMemOrders(), &recordingBroadcaster{}, &stubProvider{err: mpesa.ErrInvalidPhone}, time.Second)
	_, err = svc.InitiateSTK(ctx, dto.STKRequest{Phone: "12", Amount: 10})
	assert.ErrorIs(t, err, ErrValidation)

	svc = NewPaymentService("playbox", &memTransactions{}, newMemOrders(), &recordingBroadcaster{}, &stubProvider{err: errBoom}, time.Second)
	_, err = svc.InitiateSTK(ctx, dto.STKRequest{Phone: "0712345678", Amount: 10})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Payment initiation failed")
}

type countingRetrier struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingRetrier) Tenant() string { return "arobisca" }

func (c *countingRetrier) RetryNotifications(ctx context.Context) (int, int, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
		}
	}
	return 0, 0, nil
}

func TestSweeper_RunsAtMostOncePerInterval(t *testing.T) {
	r := &countingRetrier{}
	s := NewSweeper(5*time.Minute, time.Second, r)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	assert.True(t, s.Trigger())
	s.Wait()
	assert.False(t, s.Trigger())

	now = now.Add(4 * time.Minute)
	assert.False(t, s.Trigger())

	now = now.Add(2 * time.Minute)
	assert.True(t, s.Trigger())
	s.Wait()
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestSweeper_ConcurrentTriggersStartOne(t *testing.T) {
	r := &countingRetrier{release: make(chan struct{})}
	s := NewSweeper(5*time.Minute, time.Second, r)

	var started atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Trigger() {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	close(r.release)
	s.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestSweeper_SkipsWhileRunning(t *testing.T) {
	r := &countingRetrier{release: make(chan struct{})}
	s := NewSweeper(time.Nanosecond, time.Second, r)

	require.True(t, s.Trigger())
	time.Sleep(time.Millisecond)
	assert.False(t, s.Trigger(), "no arranca otro mientras el anterior corre")

	close(r.release)
	s.Wait()
}

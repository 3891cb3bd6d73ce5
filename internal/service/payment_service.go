package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	Upsert(ctx context.Context, t *model.Transaction) (bool, error)
	FindByTransactionID(ctx context.Context, id string) (*model.Transaction, error)
}

type PaymentReconciler interface {
	ReconcilePayment(ctx context.Context, match repository.PaymentMatch, to string) (int64, error)
}

// Broadcaster empuja el evento a los clientes conectados. At-most-once.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev model.PaymentEvent) error
}

type STKInitiator interface {
	InitiateSTK(ctx context.Context, req mpesa.STKRequest) (*mpesa.STKResult, error)
}

type PaymentService struct {
	tenant      string
	txs         TransactionRepository
	orders      PaymentReconciler
	broadcaster Broadcaster
	provider    STKInitiator
	timeout     time.Duration
}

func NewPaymentService(tenant string, txs TransactionRepository, orders PaymentReconciler, b Broadcaster, provider STKInitiator, timeout time.Duration) *PaymentService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentService{
		tenant:      tenant,
		txs:         txs,
		orders:      orders,
		broadcaster: b,
		provider:    provider,
		timeout:     timeout,
	}
}

// HandleCallback registra la transacción (idempotente por id del proveedor),
// concilia las órdenes ligadas y avisa a los clientes en vivo.
// Sólo falla si el payload es inválido o si no se pudo persistir.
func (s *PaymentService) HandleCallback(ctx context.Context, raw []byte) (*model.Transaction, error) {
	cb, err := mpesa.ParseCallback(raw)
	if err != nil {
		log.Warn().Err(err).Str("tenant", s.tenant).Str("payload", string(raw)).Msg("callback de pago inválido")
		return nil, validation("Invalid callback payload")
	}

	tx := cb.Transaction()
	created, err := s.txs.Upsert(ctx, tx)
	if err != nil {
		log.Error().Err(err).Str("tenant", s.tenant).Str("transaction_id", tx.TransactionID).Str("payload", string(raw)).
			Msg("no se pudo guardar la transacción")
		return nil, persistence(err)
	}

	logger := log.With().Str("tenant", s.tenant).Str("transaction_id", tx.TransactionID).Str("status", tx.Status).Logger()
	logger.Info().Bool("created", created).Msg("callback de pago registrado")

	s.reconcile(ctx, tx)

	ev := paymentEvent(tx)
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.broadcaster.Broadcast(bctx, ev); err != nil {
		logger.Warn().Err(err).Msg("no se pudo emitir el evento de pago")
	}
	return tx, nil
}

// reconcile aplica el resultado del callback a las órdenes. Un Success
// también recupera órdenes marcadas failed por un intento anterior con la
// misma referencia; un Failed revierte un paid declarado por el cliente.
func (s *PaymentService) reconcile(ctx context.Context, tx *model.Transaction) {
	ids := []string{tx.TransactionID}
	if tx.Reference != "" && tx.Reference != tx.TransactionID {
		ids = append(ids, tx.Reference)
	}
	match := repository.PaymentMatch{TransactionIDs: ids}
	if tx.CheckoutReference != "" {
		match.References = []string{tx.CheckoutReference}
	}

	var to string
	switch tx.Status {
	case model.TxSuccess:
		to = model.PaymentPaid
		match.LinkedFrom = []string{model.PaymentPending}
		match.ReferenceFrom = []string{model.PaymentPending, model.PaymentFailed}
		match.Link = &model.MpesaTransaction{
			TransactionID: tx.TransactionID,
			Phone:         tx.PhoneNumber,
			Amount:        tx.Amount,
		}
	case model.TxFailed:
		to = model.PaymentFailed
		match.LinkedFrom = []string{model.PaymentPending, model.PaymentPaid}
		match.ReferenceFrom = []string{model.PaymentPending}
	default:
		return
	}

	n, err := s.orders.ReconcilePayment(ctx, match, to)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", tx.TransactionID).Msg("no se pudieron conciliar las órdenes")
		return
	}
	if n > 0 {
		log.Info().Str("transaction_id", tx.TransactionID).Int64("orders", n).Str("payment_status", to).Msg("órdenes conciliadas")
	} else {
		log.Debug().Str("transaction_id", tx.TransactionID).Str("checkout_reference", tx.CheckoutReference).Msg("callback sin órdenes para conciliar")
	}
}

func paymentEvent(tx *model.Transaction) model.PaymentEvent {
	msg := "Payment " + strings.ToLower(tx.Status)
	switch tx.Status {
	case model.TxSuccess:
		msg = "Payment successful"
	case model.TxFailed:
		msg = "Payment failed"
	}

	details := map[string]any{
		"reference":   tx.Reference,
		"phoneNumber": tx.PhoneNumber,
		"amount":      tx.Amount,
		"currency":    tx.Currency,
		"tillNumber":  tx.TillNumber,
		"system":      tx.System,
	}
	if len(tx.Errors) > 0 {
		details["errors"] = tx.Errors
	}
	return model.PaymentEvent{
		TransactionID: tx.TransactionID,
		Status:        tx.Status,
		Message:       msg,
		Details:       details,
	}
}

// InitiateSTK dispara el STK push. Un error del proveedor vuelve como
// UpstreamError sin reintento.
func (s *PaymentService) InitiateSTK(ctx context.Context, req dto.STKRequest) (*mpesa.STKResult, error) {
	if s.provider == nil {
		return nil, upstream("Payment provider is not configured", nil)
	}
	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		return nil, validation("amount must be greater than zero")
	}

	res, err := s.provider.InitiateSTK(ctx, mpesa.STKRequest{
		Subscriber: mpesa.Subscriber{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.Phone,
			Email:       req.Email,
		},
		Amount:    amount.Round(2),
		Reference: req.Reference,
	})
	if errors.Is(err, mpesa.ErrInvalidPhone) {
		return nil, validation("Invalid phone number: %s", req.Phone)
	}
	if err != nil {
		log.Error().Err(err).Str("tenant", s.tenant).Msg("falló el STK push")
		return nil, upstream("Payment initiation failed: "+err.Error(), err)
	}

	log.Info().Str("tenant", s.tenant).Str("location", res.Location).Msg("STK push enviado")
	return res, nil
}

func (s *PaymentService) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	tx, err := s.txs.FindByTransactionID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Transaction")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return tx, nil
}

package service

import (
	"context"
	"errors"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Orden de avance. cancelled va aparte: se permite desde cualquier estado no final.
var statusRank = map[string]int{
	model.OrderPending:    0,
	model.OrderConfirmed:  1,
	model.OrderProcessing: 2,
	model.OrderShipped:    3,
	model.OrderDelivered:  4,
}

var validPaymentStates = map[string]bool{
	model.PaymentPending:  true,
	model.PaymentPaid:     true,
	model.PaymentFailed:   true,
	model.PaymentRefunded: true,
}

func isValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok || s == model.OrderCancelled
}

// checkTransition sólo avanza; saltos hacia adelante valen.
func checkTransition(from, to string) error {
	if !isValidStatus(to) {
		return validation("Invalid order status: %s", to)
	}
	if model.IsTerminal(from) {
		return validation("Order is already %s", from)
	}
	if from == to {
		return nil
	}
	if to == model.OrderCancelled {
		return nil
	}
	if statusRank[to] <= statusRank[from] {
		return validation("Cannot move order from %s back to %s", from, to)
	}
	return nil
}

// UpdateStatus aplica la transición con un update condicional sobre el estado leído.
// Misma status = sólo actualiza la nota y no notifica.
func (s *OrderService) UpdateStatus(ctx context.Context, rawID, to, note string) (*model.Order, error) {
	id, err := parseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	current, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(current.OrderStatus, to); err != nil {
		return nil, err
	}

	changed := current.OrderStatus != to
	markPaid := changed && to == model.OrderDelivered && current.PaymentMethod == model.MethodCOD

	updated, err := s.Orders.UpdateStatus(ctx, id, current.OrderStatus, to, note, markPaid)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("Order")
	case errors.Is(err, repository.ErrStale):
		return nil, conflict("Order status changed concurrently, please retry")
	case err != nil:
		return nil, persistence(err)
	}

	log.Info().Str("tenant", s.cfg.Tenant).Str("order_number", updated.OrderNumber).
		Str("from", current.OrderStatus).Str("to", to).Bool("marked_paid", markPaid).
		Msg("estado de orden actualizado")

	if changed {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
		defer cancel()
		if err := s.Notifier.StatusUpdate(ctx, updated); err != nil {
			log.Warn().Err(err).Str("order_number", updated.OrderNumber).Msg("aviso de cambio de estado no enviado")
		}
	}
	return updated, nil
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, rawID, status string) (*model.Order, error) {
	id, err := parseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	if !validPaymentStates[status] {
		return nil, validation("Invalid payment status: %s", status)
	}

	updated, err := s.Orders.UpdatePaymentStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return updated, nil
}

type OrderPage struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

const (
	defaultOrderPageSize = 100
	defaultUserPageSize  = 50
	maxOrderPageSize     = 500
)

func (s *OrderService) ListOrders(ctx context.Context, q dto.OrderListQuery) (*OrderPage, error) {
	f := repository.OrderFilter{Status: q.Status, PaymentMethod: q.PaymentMethod}
	return s.list(ctx, f, q.Page, q.Limit, defaultOrderPageSize)
}

func (s *OrderService) ListUserOrders(ctx context.Context, rawUserID string, page, limit int) (*OrderPage, error) {
	uid, err := parseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.OrderFilter{UserID: &uid}, page, limit, defaultUserPageSize)
}

func (s *OrderService) list(ctx context.Context, f repository.OrderFilter, page, limit, def int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	limit = min(limit, maxOrderPageSize)

	orders, total, err := s.Orders.List(ctx, f, int64((page-1)*limit), int64(limit))
	if err != nil {
		return nil, persistence(err)
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, rawID string) (*model.Order, error) {
	id, err := parseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	return s.findOrder(ctx, id)
}

func (s *OrderService) GetOrdersByIDs(ctx context.Context, rawIDs []string) ([]model.Order, error) {
	if len(rawIDs) == 0 {
		return nil, validation("No order IDs provided.")
	}
	ids := make([]primitive.ObjectID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := parseID(raw, "order")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	orders, err := s.Orders.FindByIDs(ctx, ids)
	if err != nil {
		return nil, persistence(err)
	}
	return orders, nil
}

// DeleteOrder borra la orden y la desliga de la lista del comprador.
func (s *OrderService) DeleteOrder(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "order")
	if err != nil {
		return err
	}
	deleted, err := s.Orders.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Order")
	}
	if err != nil {
		return persistence(err)
	}

	if err := s.Users.UnlinkOrder(ctx, deleted.UserID, deleted.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Str("order_number", deleted.OrderNumber).Msg("orden borrada pero no desligada del usuario")
	}
	log.Info().Str("tenant", s.cfg.Tenant).Str("order_number", deleted.OrderNumber).Msg("orden borrada")
	return nil
}

// RetryNotifications reintenta las confirmaciones pendientes. Sin backoff ni
// tope de intentos: lo que falla queda para el próximo barrido.
func (s *OrderService) RetryNotifications(ctx context.Context) (sent, failed int, err error) {
	// las recién creadas todavía pueden estar en su primer envío
	pending, err := s.Orders.FindUnnotified(ctx, s.now().Add(-s.cfg.NotifyTimeout))
	if err != nil {
		return 0, 0, persistence(err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return sent, failed, ctx.Err()
		}
		o := &pending[i]

		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
		err := s.Notifier.OrderConfirmation(sendCtx, o, nil)
		cancel()
		if err != nil {
			failed++
			log.Warn().Err(err).Str("tenant", s.cfg.Tenant).Str("order_number", o.OrderNumber).Msg("reintento de confirmación fallido")
			continue
		}
		if err := s.Orders.SetNotificationSent(ctx, o.ID, true); err != nil {
			failed++
			log.Error().Err(err).Str("order_number", o.OrderNumber).Msg("no se pudo marcar la notificación")
			continue
		}
		sent++
	}
	return sent, failed, nil
}

func (s *OrderService) findOrder(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	o, err := s.Orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return o, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Order, error)
	List(ctx context.Context, f repository.OrderFilter, skip, limit int64) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to, note string, markPaid bool) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status string) (*model.Order, error)
	ReconcilePayment(ctx context.Context, match repository.PaymentMatch, to string) (int64, error)
	SetNotificationSent(ctx context.Context, id primitive.ObjectID, sent bool) error
	FindUnnotified(ctx context.Context, before time.Time) ([]model.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
}

type CounterRepository interface {
	Next(ctx context.Context, key string) (int64, error)
}

type ShippingFeeLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.ShippingFee, error)
}

type CouponLookup interface {
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// Notifier envía los mails transaccionales de la orden.
type Notifier interface {
	OrderConfirmation(ctx context.Context, o *model.Order, creds *model.Credentials) error
	StatusUpdate(ctx context.Context, o *model.Order) error
}

// OrderEventPublisher publica order_placed para otros servicios (opcional).
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, tenant string, o *model.Order) error
}

type OrderDeps struct {
	Orders       OrderRepository
	Counters     CounterRepository
	Users        UserRepository
	ShippingFees ShippingFeeLookup
	Coupons      CouponLookup
	Notifier     Notifier
	Events       OrderEventPublisher
}

type OrderServiceConfig struct {
	Tenant        string
	Loyalty       bool
	NotifyTimeout time.Duration
	Location      *time.Location
}

type OrderService struct {
	OrderDeps
	cfg OrderServiceConfig
	now func() time.Time
}

func NewOrderService(cfg OrderServiceConfig, deps OrderDeps) *OrderService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &OrderService{OrderDeps: deps, cfg: cfg, now: time.Now}
}

func (s *OrderService) Tenant() string {
	return s.cfg.Tenant
}

// CreateOrderResult credenciales y puntos sólo vienen cuando aplican.
type CreateOrderResult struct {
	Order                *model.Order       `json:"order"`
	Credentials          *model.Credentials `json:"credentials,omitempty"`
	LoyaltyPointsAwarded float64            `json:"loyaltyPointsAwarded,omitempty"`
}

// CreateOrder valida, resuelve la cuenta, numera y persiste la orden.
// Si el mail de confirmación falla la orden queda con notification_sent=false
// y la retoma el barrido.
func (s *OrderService) CreateOrder(ctx context.Context, authUserID string, req dto.CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderRequest(authUserID, &req); err != nil {
		return nil, err
	}
	if err := checkTotals(req.Subtotal, req.Discount, req.ShippingFee, req.Total); err != nil {
		return nil, err
	}
	if req.PaymentMethod == model.MethodCredit && req.CreditTerms == nil {
		return nil, conflict("Credit terms are required for credit purchases")
	}

	shipping, err := s.lookupShipping(ctx, req.ShippingMethodID, req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if req.Coupon != nil {
		if err := s.checkCoupon(ctx, req.Coupon.Code); err != nil {
			return nil, err
		}
	}

	user, creds, err := s.resolveAccount(ctx, authUserID, &req)
	if err != nil {
		return nil, err
	}

	// numerar recién con la cuenta resuelta
	now := s.now()
	number, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		s.discardGuest(ctx, user, creds)
		return nil, err
	}

	order := buildOrder(&req, user, shipping, number, now)
	if s.cfg.Loyalty {
		order.LoyaltyPoints = LoyaltyPoints(decimal.NewFromFloat(req.Total))
	}

	if err := s.Orders.Insert(ctx, order); err != nil {
		s.discardGuest(ctx, user, creds)
		return nil, persistence(err)
	}

	logger := log.With().Str("tenant", s.cfg.Tenant).Str("order_number", order.OrderNumber).Logger()
	logger.Info().Str("order_id", order.ID.Hex()).Str("payment_method", order.PaymentMethod).Msg("orden creada")

	if err := s.Users.LinkOrder(ctx, user.ID, order.ID); err != nil {
		logger.Error().Err(err).Msg("no se pudo ligar la orden al usuario")
	}
	if order.LoyaltyPoints > 0 {
		if err := s.Users.AddLoyaltyPoints(ctx, user.ID, order.LoyaltyPoints); err != nil {
			logger.Error().Err(err).Msg("no se pudieron sumar puntos de lealtad")
		}
	}
	if s.Events != nil {
		if err := s.Events.PublishOrderPlaced(ctx, s.cfg.Tenant, order); err != nil {
			logger.Warn().Err(err).Msg("no se pudo publicar order_placed")
		}
	}

	s.sendConfirmation(ctx, order, creds)

	return &CreateOrderResult{
		Order:                order,
		Credentials:          creds,
		LoyaltyPointsAwarded: order.LoyaltyPoints,
	}, nil
}

// discardGuest borra la cuenta recién provista cuando la orden no llegó a
// guardarse; sus credenciales nunca se entregaron.
func (s *OrderService) discardGuest(ctx context.Context, u *model.User, creds *model.Credentials) {
	if creds == nil {
		return
	}
	if err := s.Users.Delete(context.WithoutCancel(ctx), u.ID); err != nil {
		log.Error().Err(err).Str("tenant", s.cfg.Tenant).Str("user_id", u.ID.Hex()).Msg("no se pudo borrar la cuenta de invitado huérfana")
	}
}

func (s *OrderService) sendConfirmation(ctx context.Context, o *model.Order, creds *model.Credentials) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.Notifier.OrderConfirmation(ctx, o, creds); err != nil {
		log.Warn().Err(err).Str("tenant", s.cfg.Tenant).Str("order_number", o.OrderNumber).
			Msg("confirmación no enviada, queda para el barrido")
		return
	}
	if err := s.Orders.SetNotificationSent(ctx, o.ID, true); err != nil {
		log.Error().Err(err).Str("order_number", o.OrderNumber).Msg("no se pudo marcar la notificación")
		return
	}
	o.NotificationSent = true
}

// nextOrderNumber ORD-YYYYMMDD-NNNN con un contador atómico por día.
// Pasado 9999 en el mismo día cae a ORD-<unix millis>.
func (s *OrderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	day := now.In(s.cfg.Location).Format("20060102")
	seq, err := s.Counters.Next(ctx, "ORD-"+day)
	if err != nil {
		return "", persistence(err)
	}
	if seq < 1 || seq > 9999 {
		return fmt.Sprintf("ORD-%d", now.UnixMilli()), nil
	}
	return fmt.Sprintf("ORD-%s-%04d", day, seq), nil
}

func (s *OrderService) lookupShipping(ctx context.Context, rawID, method string) (*model.ShippingFee, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, validation("Invalid shipping method id")
	}
	fee, err := s.ShippingFees.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Shipping method")
	}
	if err != nil {
		return nil, persistence(err)
	}
	if method == model.MethodCOD && !fee.CODAvailable {
		return nil, validation("Cash on delivery is not available for %s", fee.Destination)
	}
	return fee, nil
}

func (s *OrderService) checkCoupon(ctx context.Context, code string) error {
	c, err := s.Coupons.FindByCode(ctx, normalizeCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return validation("Coupon %s is not valid", code)
	}
	if err != nil {
		return persistence(err)
	}
	if c.Expired(s.now()) {
		return validation("Coupon %s has expired", c.Code)
	}
	if c.Status != model.CouponActive {
		return validation("Coupon %s is inactive", c.Code)
	}
	return nil
}

func buildOrder(req *dto.CreateOrderRequest, user *model.User, fee *model.ShippingFee, number string, now time.Time) *model.Order {
	ship := toAddress(req.ShippingAddress)
	bill := ship
	if req.BillingAddress != nil {
		bill = toAddress(*req.BillingAddress)
	}

	o := &model.Order{
		OrderNumber: number,
		UserID:      user.ID,
		Customer: model.Customer{
			Username: user.Username,
			Email:    user.Email,
			Phone:    firstNonEmpty(ship.Phone, user.PhoneNumber),
		},
		Items:           toItems(req.Items),
		Subtotal:        req.Subtotal,
		Discount:        req.Discount,
		ShippingFee:     req.ShippingFee,
		Total:           req.Total,
		OrderStatus:     model.OrderPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   initialPaymentStatus(req),
		ShippingAddress: ship,
		BillingAddress:  bill,
		ShippingMethod: model.ShippingSnapshot{
			ID:           fee.ID,
			Destination:  fee.Destination,
			DeliveryTime: fee.DeliveryTime,
		},
		CreatedAt: now.UTC(),
	}
	if req.PaymentMethod == model.MethodCredit {
		o.CreditTerms = &model.CreditTerms{
			CreditDays:    req.CreditTerms.CreditDays,
			PaymentMethod: req.CreditTerms.PaymentMethod,
		}
	}
	if req.Coupon != nil {
		o.Coupon = &model.AppliedCoupon{
			Code:            normalizeCode(req.Coupon.Code),
			DiscountType:    req.Coupon.DiscountType,
			DiscountAmount:  req.Coupon.DiscountAmount,
			AppliedDiscount: req.Coupon.AppliedDiscount,
		}
	}
	if req.PaymentMethod == model.MethodMpesa && req.MpesaTransaction != nil {
		o.MpesaTransaction = &model.MpesaTransaction{
			TransactionID: req.MpesaTransaction.TransactionID,
			Phone:         req.MpesaTransaction.Phone,
			Amount:        req.MpesaTransaction.Amount,
		}
	}
	if req.PaymentMethod == model.MethodMpesa && req.MpesaTransaction == nil {
		o.PaymentReference = strings.TrimSpace(req.PaymentReference)
	}
	return o
}

// mpesa con transacción adjunta ya está cobrada; el resto arranca pendiente.
func initialPaymentStatus(req *dto.CreateOrderRequest) string {
	if req.PaymentMethod == model.MethodMpesa && req.MpesaTransaction != nil {
		return model.PaymentPaid
	}
	return model.PaymentPending
}

func validateOrderRequest(authUserID string, req *dto.CreateOrderRequest) error {
	var missing []string
	if len(req.Items) == 0 {
		missing = append(missing, "items")
	}
	for i, it := range req.Items {
		if _, err := primitive.ObjectIDFromHex(it.ProductID); err != nil {
			missing = append(missing, fmt.Sprintf("items[%d].productId", i))
		}
		if strings.TrimSpace(it.Name) == "" {
			missing = append(missing, fmt.Sprintf("items[%d].name", i))
		}
		if it.Quantity <= 0 {
			missing = append(missing, fmt.Sprintf("items[%d].quantity", i))
		}
		if it.Price <= 0 {
			missing = append(missing, fmt.Sprintf("items[%d].price", i))
		}
	}

	a := req.ShippingAddress
	required := map[string]string{
		"shippingAddress.firstName":  a.FirstName,
		"shippingAddress.lastName":   a.LastName,
		"shippingAddress.address":    a.Address,
		"shippingAddress.city":       a.City,
		"shippingAddress.postalCode": a.PostalCode,
	}
	if authUserID == "" {
		required["customer.email"] = guestEmail(req)
		required["customer.phone"] = firstNonEmpty(req.Customer.Phone, a.Phone)
	}
	for _, field := range slices.Sorted(maps.Keys(required)) {
		if strings.TrimSpace(required[field]) == "" {
			missing = append(missing, field)
		}
	}

	if authUserID == "" && req.Customer.AccountType == model.AccountBusiness {
		business := map[string]string{
			"customer.businessAddress": req.Customer.BusinessAddress,
			"customer.companyName":     req.Customer.CompanyName,
			"customer.kraPin":          req.Customer.KRAPin,
		}
		for _, field := range slices.Sorted(maps.Keys(business)) {
			if strings.TrimSpace(business[field]) == "" {
				missing = append(missing, field)
			}
		}
	}

	switch req.PaymentMethod {
	case model.MethodMpesa, model.MethodCOD, model.MethodCredit:
	default:
		missing = append(missing, "paymentMethod")
	}
	if req.ShippingMethodID == "" {
		missing = append(missing, "shippingMethod")
	}

	if len(missing) > 0 {
		return invalidFields(missing)
	}
	return nil
}

// checkTotals total == subtotal - discount + shipping, todo no negativo.
func checkTotals(subtotal, discount, shipping, total float64) error {
	sub := decimal.NewFromFloat(subtotal)
	disc := decimal.NewFromFloat(discount)
	ship := decimal.NewFromFloat(shipping)
	tot := decimal.NewFromFloat(total)

	amounts := []struct {
		name  string
		value decimal.Decimal
	}{{"subtotal", sub}, {"discount", disc}, {"shippingFee", ship}, {"total", tot}}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return validation("%s must not be negative", a.name)
		}
	}

	expected := sub.Sub(disc).Add(ship).Round(2)
	if !expected.Equal(tot.Round(2)) {
		return validation("Total mismatch: expected %s, got %s", expected.StringFixed(2), tot.StringFixed(2))
	}
	return nil
}

func toAddress(in dto.AddressDTO) model.Address {
	return model.Address{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		Apartment:  strings.TrimSpace(in.Apartment),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
	}
}

func toItems(in []dto.OrderItemDTO) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(in))
	for _, it := range in {
		pid, _ := primitive.ObjectIDFromHex(it.ProductID)
		out = append(out, model.OrderItem{
			ProductID:  pid,
			Name:       it.Name,
			Image:      it.Image,
			Price:      it.Price,
			Quantity:   it.Quantity,
			OfferPrice: it.OfferPrice,
		})
	}
	return out
}

func guestEmail(req *dto.CreateOrderRequest) string {
	return strings.ToLower(strings.TrimSpace(firstNonEmpty(req.Customer.Email, req.ShippingAddress.Email)))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, validation("Invalid %s id", what)
	}
	return id, nil
}

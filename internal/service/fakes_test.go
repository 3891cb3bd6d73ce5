package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repos en memoria con las mismas garantías atómicas que los de Mongo.

type memOrders struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*model.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[primitive.ObjectID]*model.Order{}}
}

func (m *memOrders) Insert(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.orders {
		if other.OrderNumber == o.OrderNumber {
			return repository.ErrDuplicateKey
		}
	}
	o.ID = primitive.NewObjectID()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, id := range ids {
		if o, ok := m.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) List(_ context.Context, f repository.OrderFilter, skip, limit int64) ([]model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Order
	for _, o := range m.orders {
		if f.Status != "" && o.OrderStatus != f.Status {
			continue
		}
		if f.PaymentMethod != "" && o.PaymentMethod != f.PaymentMethod {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		all = append(all, *o)
	}
	total := int64(len(all))
	if skip >= total {
		return nil, total, nil
	}
	return all[skip:min(skip+limit, total)], total, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to, note string, markPaid bool) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.OrderStatus != from {
		return nil, repository.ErrStale
	}
	o.OrderStatus = to
	if note != "" {
		o.AdminNote = note
	}
	if markPaid {
		o.PaymentStatus = model.PaymentPaid
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) UpdatePaymentStatus(_ context.Context, id primitive.ObjectID, status string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.PaymentStatus = status
	cp := *o
	return &cp, nil
}

func (m *memOrders) ReconcilePayment(_ context.Context, match repository.PaymentMatch, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		linked := o.MpesaTransaction != nil &&
			slices.Contains(match.TransactionIDs, o.MpesaTransaction.TransactionID) &&
			slices.Contains(match.LinkedFrom, o.PaymentStatus)
		byRef := o.PaymentReference != "" &&
			slices.Contains(match.References, o.PaymentReference) &&
			slices.Contains(match.ReferenceFrom, o.PaymentStatus)
		if !linked && !byRef {
			continue
		}
		if o.PaymentStatus != to {
			n++
		}
		o.PaymentStatus = to
		if match.Link != nil {
			link := *match.Link
			o.MpesaTransaction = &link
		}
	}
	return n, nil
}

func (m *memOrders) SetNotificationSent(_ context.Context, id primitive.ObjectID, sent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.NotificationSent = sent
	return nil
}

func (m *memOrders) FindUnnotified(_ context.Context, before time.Time) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.orders {
		if !o.NotificationSent && o.CreatedAt.Before(before) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) Delete(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.orders, id)
	return o, nil
}

func (m *memOrders) all() []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out
}

type memCounters struct {
	mu   sync.Mutex
	seqs map[string]int64
	err  error
}

func (c *memCounters) Next(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if c.seqs == nil {
		c.seqs = map[string]int64{}
	}
	c.seqs[key]++
	return c.seqs[key], nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]*model.User{}}
}

func (m *memUsers) Insert(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email || other.Username == u.Username {
			return repository.ErrDuplicateKey
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) get(id primitive.ObjectID) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) ExistsUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) list(u *model.User, field string) *[]model.Address {
	if field == repository.BillingAddresses {
		return &u.BillingAddresses
	}
	return &u.ShippingAddresses
}

func (m *memUsers) AddAddress(_ context.Context, userID primitive.ObjectID, field string, addr model.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return false, err
	}
	l := m.list(u, field)
	if len(*l) >= model.MaxSavedAddresses {
		return false, nil
	}
	for _, a := range *l {
		if a.SameLocation(addr) {
			return false, nil
		}
	}
	if addr.ID.IsZero() {
		addr.ID = primitive.NewObjectID()
	}
	*l = append(*l, addr)
	return true, nil
}

func (m *memUsers) UpdateAddress(_ context.Context, userID primitive.ObjectID, field string, addr model.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	l := m.list(u, field)
	for i := range *l {
		if (*l)[i].ID == addr.ID {
			(*l)[i] = addr
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUsers) RemoveAddress(_ context.Context, userID primitive.ObjectID, field string, addrID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	l := m.list(u, field)
	for i := range *l {
		if (*l)[i].ID == addrID {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUsers) LinkOrder(_ context.Context, userID, orderID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.Orders = append(u.Orders, orderID)
	return nil
}

func (m *memUsers) UnlinkOrder(_ context.Context, userID, orderID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	for i, id := range u.Orders {
		if id == orderID {
			u.Orders = append(u.Orders[:i], u.Orders[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memUsers) AddLoyaltyPoints(_ context.Context, userID primitive.ObjectID, points float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	u.LoyaltyPoints += points
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (m *memUsers) SetResetCode(_ context.Context, userID primitive.ObjectID, prev *time.Time, hash string, expires, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	if !sameTime(u.LastResetRequest, prev) {
		return repository.ErrStale
	}
	u.ResetCodeHash, u.ResetExpiresAt, u.LastResetRequest = hash, &expires, &now
	return nil
}

func (m *memUsers) ConsumeResetCode(_ context.Context, userID primitive.ObjectID, codeHash, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	if u.ResetCodeHash != codeHash {
		return repository.ErrStale
	}
	u.PasswordHash = passwordHash
	u.ResetCodeHash, u.ResetExpiresAt = "", nil
	return nil
}

func (m *memUsers) SetVerificationCode(_ context.Context, userID primitive.ObjectID, prev *time.Time, hash string, expires, now time.Time, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	if !sameTime(u.LastVerificationRequest, prev) {
		return repository.ErrStale
	}
	u.VerificationCodeHash, u.VerificationExpiresAt = hash, &expires
	u.LastVerificationRequest, u.VerificationRequestCount = &now, count
	return nil
}

func (m *memUsers) MarkEmailVerified(_ context.Context, userID primitive.ObjectID, codeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(userID)
	if err != nil {
		return err
	}
	if u.VerificationCodeHash != codeHash {
		return repository.ErrStale
	}
	u.EmailVerified = true
	u.VerificationCodeHash, u.VerificationExpiresAt, u.VerificationRequestCount = "", nil, 0
	return nil
}

type memShipping map[primitive.ObjectID]*model.ShippingFee

func (m memShipping) FindByID(_ context.Context, id primitive.ObjectID) (*model.ShippingFee, error) {
	f, ok := m[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

type memCoupons map[string]*model.Coupon

func (m memCoupons) FindByCode(_ context.Context, code string) (*model.Coupon, error) {
	c, ok := m[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

// mockNotifier con testify/mock para verificar llamadas.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) OrderConfirmation(ctx context.Context, o *model.Order, creds *model.Credentials) error {
	args := m.Called(ctx, o, creds)
	return args.Error(0)
}

func (m *mockNotifier) StatusUpdate(ctx context.Context, o *model.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

// recordingMailer guarda los códigos enviados.
type recordingMailer struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (r *recordingMailer) PasswordResetCode(_ context.Context, _ *model.User, code string) error {
	return r.record(code)
}

func (r *recordingMailer) VerificationCode(_ context.Context, _ *model.User, code string) error {
	return r.record(code)
}

func (r *recordingMailer) record(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.codes = append(r.codes, code)
	return nil
}

func (r *recordingMailer) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return ""
	}
	return r.codes[len(r.codes)-1]
}

var errBoom = errors.New("boom")

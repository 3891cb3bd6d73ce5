package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("documento no encontrado")
	ErrDuplicateKey = errors.New("clave duplicada")
	// ErrStale: el documento cambió entre la lectura y la escritura condicional
	ErrStale = errors.New("documento modificado concurrentemente")
)

// OrderFilter filtra el listado de órdenes. Campos vacíos no filtran.
type OrderFilter struct {
	Status        string
	PaymentMethod string
	UserID        *primitive.ObjectID
}

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}

	if _, err := m.col.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &res, nil
}

func (m *MongoOrderRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

// List devuelve una página (más nuevas primero) y el total que matchea el filtro.
func (m *MongoOrderRepository) List(ctx context.Context, f OrderFilter, skip, limit int64) ([]model.Order, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["order_status"] = f.Status
	}
	if f.PaymentMethod != "" {
		filter["payment_method"] = f.PaymentMethod
	}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	out, err := m.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateStatus aplica la transición sólo si el estado sigue siendo `from`.
// Con markPaid también deja el pago en paid dentro del mismo update.
func (m *MongoOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to, note string, markPaid bool) (*model.Order, error) {
	set := bson.M{
		"order_status": to,
		"admin_note":   note,
		"updated_at":   time.Now().UTC(),
	}
	if markPaid {
		set["payment_status"] = model.PaymentPaid
	}

	filter := bson.M{"_id": id, "order_status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Order
	err := m.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, m.missingOrStale(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return &res, nil
}

func (m *MongoOrderRepository) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status string) (*model.Order, error) {
	update := bson.M{"$set": bson.M{
		"payment_status": status,
		"updated_at":     time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Order
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	return &res, nil
}

// PaymentMatch identifica las órdenes que concilia un callback: las ya
// ligadas a la transacción y las que esperan por la referencia del STK.
// Cada rama acepta sólo los estados de pago listados.
type PaymentMatch struct {
	TransactionIDs []string
	LinkedFrom     []string

	References    []string
	ReferenceFrom []string

	// Link se guarda como mpesa_transaction de las órdenes conciliadas.
	Link *model.MpesaTransaction
}

func (p PaymentMatch) filter() bson.M {
	var branches bson.A
	if len(p.TransactionIDs) > 0 && len(p.LinkedFrom) > 0 {
		branches = append(branches, bson.M{
			"mpesa_transaction.transaction_id": bson.M{"$in": p.TransactionIDs},
			"payment_status":                   bson.M{"$in": p.LinkedFrom},
		})
	}
	if len(p.References) > 0 && len(p.ReferenceFrom) > 0 {
		branches = append(branches, bson.M{
			"payment_reference": bson.M{"$in": p.References},
			"payment_status":    bson.M{"$in": p.ReferenceFrom},
		})
	}
	switch len(branches) {
	case 0:
		return nil
	case 1:
		return branches[0].(bson.M)
	}
	return bson.M{"$or": branches}
}

// ReconcilePayment lleva a `to` el pago de las órdenes que matchean.
func (m *MongoOrderRepository) ReconcilePayment(ctx context.Context, match PaymentMatch, to string) (int64, error) {
	filter := match.filter()
	if filter == nil {
		return 0, nil
	}
	set := bson.M{
		"payment_status": to,
		"updated_at":     time.Now().UTC(),
	}
	if match.Link != nil {
		set["mpesa_transaction"] = match.Link
	}
	res, err := m.col.UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("reconcile payment: %w", err)
	}
	return res.ModifiedCount, nil
}

func (m *MongoOrderRepository) SetNotificationSent(ctx context.Context, id primitive.ObjectID, sent bool) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"notification_sent": sent}})
	if err != nil {
		return fmt.Errorf("set notification flag: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUnnotified devuelve las órdenes creadas antes de `before` cuya
// confirmación todavía no salió.
func (m *MongoOrderRepository) FindUnnotified(ctx context.Context, before time.Time) ([]model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	filter := bson.M{
		"notification_sent": false,
		"created_at":        bson.M{"$lt": before},
	}
	return m.find(ctx, filter, opts)
}

func (m *MongoOrderRepository) Delete(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}
	return &res, nil
}

func (m *MongoOrderRepository) missingOrStale(ctx context.Context, id primitive.ObjectID) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count order: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStale
}

func (m *MongoOrderRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]model.Order, error) {
	cur, err := m.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return out, nil
}

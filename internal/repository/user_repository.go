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

// Campos de direcciones dentro del documento de usuario
const (
	ShippingAddresses = "shipping_addresses"
	BillingAddresses  = "billing_addresses"
)

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection("users")}
}

func (m *MongoUserRepository) Insert(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.ShippingAddresses == nil {
		u.ShippingAddresses = []model.Address{}
	}
	if u.BillingAddresses == nil {
		u.BillingAddresses = []model.Address{}
	}
	if u.Orders == nil {
		u.Orders = []primitive.ObjectID{}
	}

	if _, err := m.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

// ExistsUsernameOrEmail se usa en el registro antes de insertar.
func (m *MongoUserRepository) ExistsUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (m *MongoUserRepository) List(ctx context.Context) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (m *MongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAddress agrega la dirección sólo si no hay otra con la misma
// calle/ciudad/código postal y la lista no llegó al tope. Todo en un único
// update condicional: dos altas concurrentes no pueden pasarse del tope.
// Devuelve false si no se agregó (duplicada o lista llena).
func (m *MongoUserRepository) AddAddress(ctx context.Context, userID primitive.ObjectID, field string, addr model.Address) (bool, error) {
	if addr.ID.IsZero() {
		addr.ID = primitive.NewObjectID()
	}

	filter := bson.M{
		"_id": userID,
		fmt.Sprintf("%s.%d", field, model.MaxSavedAddresses-1): bson.M{"$exists": false},
		field: bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"address":     addr.Address,
			"city":        addr.City,
			"postal_code": addr.PostalCode,
		}}},
	}
	update := bson.M{
		"$push": bson.M{field: addr},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("add address: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	if err := m.exists(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (m *MongoUserRepository) UpdateAddress(ctx context.Context, userID primitive.ObjectID, field string, addr model.Address) error {
	filter := bson.M{"_id": userID, field + "._id": addr.ID}
	update := bson.M{"$set": bson.M{
		field + ".$": addr,
		"updated_at": time.Now().UTC(),
	}}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) RemoveAddress(ctx context.Context, userID primitive.ObjectID, field string, addrID primitive.ObjectID) error {
	filter := bson.M{"_id": userID, field + "._id": addrID}
	update := bson.M{
		"$pull": bson.M{field: bson.M{"_id": addrID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("remove address: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) LinkOrder(ctx context.Context, userID, orderID primitive.ObjectID) error {
	return m.updateByID(ctx, userID, bson.M{"$addToSet": bson.M{"orders": orderID}})
}

func (m *MongoUserRepository) UnlinkOrder(ctx context.Context, userID, orderID primitive.ObjectID) error {
	return m.updateByID(ctx, userID, bson.M{"$pull": bson.M{"orders": orderID}})
}

func (m *MongoUserRepository) AddLoyaltyPoints(ctx context.Context, userID primitive.ObjectID, points float64) error {
	return m.updateByID(ctx, userID, bson.M{"$inc": bson.M{"loyalty_points": points}})
}

// SetResetCode guarda el hash del código de reseteo. `prev` es el valor de
// last_reset_request que se leyó; si otro pedido lo cambió entre medio
// devuelve ErrStale.
func (m *MongoUserRepository) SetResetCode(ctx context.Context, userID primitive.ObjectID, prev *time.Time, hash string, expires, now time.Time) error {
	filter := bson.M{"_id": userID, "last_reset_request": timeOrNil(prev)}
	update := bson.M{"$set": bson.M{
		"reset_code_hash":    hash,
		"reset_expires_at":   expires,
		"last_reset_request": now,
	}}
	return m.updateCAS(ctx, userID, filter, update)
}

// ConsumeResetCode cambia la contraseña y borra el código en el mismo update.
// Sólo aplica si el hash guardado sigue siendo `codeHash` (un solo uso).
func (m *MongoUserRepository) ConsumeResetCode(ctx context.Context, userID primitive.ObjectID, codeHash, passwordHash string) error {
	filter := bson.M{"_id": userID, "reset_code_hash": codeHash}
	update := bson.M{
		"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		},
		"$unset": bson.M{"reset_code_hash": "", "reset_expires_at": ""},
	}
	return m.updateCAS(ctx, userID, filter, update)
}

// SetVerificationCode igual que SetResetCode pero para verificación de email;
// count es el contador de pedidos ya ajustado a la ventana de 24h.
func (m *MongoUserRepository) SetVerificationCode(ctx context.Context, userID primitive.ObjectID, prev *time.Time, hash string, expires, now time.Time, count int) error {
	filter := bson.M{"_id": userID, "last_verification_request": timeOrNil(prev)}
	update := bson.M{"$set": bson.M{
		"verification_code_hash":     hash,
		"verification_expires_at":    expires,
		"last_verification_request":  now,
		"verification_request_count": count,
	}}
	return m.updateCAS(ctx, userID, filter, update)
}

func (m *MongoUserRepository) MarkEmailVerified(ctx context.Context, userID primitive.ObjectID, codeHash string) error {
	filter := bson.M{"_id": userID, "verification_code_hash": codeHash}
	update := bson.M{
		"$set":   bson.M{"email_verified": true, "verification_request_count": 0, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"verification_code_hash": "", "verification_expires_at": ""},
	}
	return m.updateCAS(ctx, userID, filter, update)
}

func (m *MongoUserRepository) updateCAS(ctx context.Context, userID primitive.ObjectID, filter, update bson.M) error {
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if err := m.exists(ctx, userID); err != nil {
		return err
	}
	return ErrStale
}

func (m *MongoUserRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) exists(ctx context.Context, id primitive.ObjectID) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var res model.User
	err := m.col.FindOne(ctx, filter).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &res, nil
}

// timeOrNil: un filtro {campo: nil} matchea tanto null como campo ausente.
func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

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

type MongoShippingFeeRepository struct {
	col *mongo.Collection
}

func NewMongoShippingFeeRepository(db *mongo.Database) *MongoShippingFeeRepository {
	return &MongoShippingFeeRepository{col: db.Collection("shipping_fees")}
}

func (m *MongoShippingFeeRepository) Insert(ctx context.Context, f *model.ShippingFee) error {
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if _, err := m.col.InsertOne(ctx, f); err != nil {
		return fmt.Errorf("insert shipping fee: %w", err)
	}
	return nil
}

func (m *MongoShippingFeeRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.ShippingFee, error) {
	var res model.ShippingFee
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find shipping fee: %w", err)
	}
	return &res, nil
}

func (m *MongoShippingFeeRepository) List(ctx context.Context) ([]model.ShippingFee, error) {
	opts := options.Find().SetSort(bson.D{{Key: "destination", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find shipping fees: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.ShippingFee{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode shipping fees: %w", err)
	}
	return out, nil
}

func (m *MongoShippingFeeRepository) Update(ctx context.Context, f *model.ShippingFee) (*model.ShippingFee, error) {
	set := bson.M{
		"destination":    f.Destination,
		"pickup_station": f.PickupStation,
		"distance":       f.Distance,
		"amount":         f.Amount,
		"delivery_time":  f.DeliveryTime,
		"cod_available":  f.CODAvailable,
		"updated_at":     time.Now().UTC(),
	}
	return m.findOneAndUpdate(ctx, f.ID, bson.M{"$set": set})
}

// ToggleCOD invierte cod_available del lado del servidor (update con pipeline).
func (m *MongoShippingFeeRepository) ToggleCOD(ctx context.Context, id primitive.ObjectID) (*model.ShippingFee, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "cod_available", Value: bson.D{{Key: "$not", Value: bson.A{"$cod_available"}}}},
			{Key: "updated_at", Value: "$$NOW"},
		}}},
	}
	return m.findOneAndUpdate(ctx, id, pipeline)
}

func (m *MongoShippingFeeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete shipping fee: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoShippingFeeRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update any) (*model.ShippingFee, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.ShippingFee
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update shipping fee: %w", err)
	}
	return &res, nil
}

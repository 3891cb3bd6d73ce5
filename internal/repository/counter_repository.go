package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCounterRepository guarda secuencias con nombre ({_id, seq}).
type MongoCounterRepository struct {
	col *mongo.Collection
}

func NewMongoCounterRepository(db *mongo.Database) *MongoCounterRepository {
	return &MongoCounterRepository{col: db.Collection("counters")}
}

// Next incrementa y devuelve la secuencia `key`, creándola en 1 si no existe.
func (m *MongoCounterRepository) Next(ctx context.Context, key string) (int64, error) {
	seq, err := m.next(ctx, key)
	if mongo.IsDuplicateKeyError(err) {
		// dos upserts simultáneos sobre un _id nuevo: uno gana, el otro reintenta como update
		seq, err = m.next(ctx, key)
	}
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", key, err)
	}
	return seq, nil
}

func (m *MongoCounterRepository) next(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

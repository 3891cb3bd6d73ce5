package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTransactionRepository struct {
	col *mongo.Collection
}

func NewMongoTransactionRepository(db *mongo.Database) *MongoTransactionRepository {
	return &MongoTransactionRepository{col: db.Collection("mpesa_transactions")}
}

// Upsert registra la transacción por transaction_id. Reenvíos del mismo
// callback pisan los campos pero nunca crean un segundo documento.
// created indica si esta llamada insertó el registro.
func (m *MongoTransactionRepository) Upsert(ctx context.Context, t *model.Transaction) (created bool, err error) {
	now := time.Now().UTC()
	t.UpdatedAt = now

	set := bson.M{
		"status":             t.Status,
		"reference":          t.Reference,
		"checkout_reference": t.CheckoutReference,
		"phone_number":       t.PhoneNumber,
		"amount":             t.Amount,
		"currency":           t.Currency,
		"till_number":        t.TillNumber,
		"system":             t.System,
		"errors":             t.Errors,
		"updated_at":         now,
	}
	if t.InitiatedAt != nil {
		set["initiated_at"] = *t.InitiatedAt
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}

	res, err := m.col.UpdateOne(ctx, bson.M{"transaction_id": t.TransactionID}, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// otro callback concurrente insertó primero; el registro ya es durable
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert transaction: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (m *MongoTransactionRepository) FindByTransactionID(ctx context.Context, id string) (*model.Transaction, error) {
	var res model.Transaction
	err := m.col.FindOne(ctx, bson.M{"transaction_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return &res, nil
}

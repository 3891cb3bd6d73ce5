package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes crea los índices de los que dependen las garantías de
// unicidad (número de orden, email/username, código de cupón, transacción).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"orders": {
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "notification_sent", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "mpesa_transaction.transaction_id", Value: 1}}},
			{Keys: bson.D{{Key: "payment_reference", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"coupons": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"mpesa_transactions": {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"categories": {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"products": {
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
		},
	}

	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", col, err)
		}
	}
	return nil
}

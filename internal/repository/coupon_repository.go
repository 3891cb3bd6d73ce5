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

type MongoCouponRepository struct {
	col *mongo.Collection
}

func NewMongoCouponRepository(db *mongo.Database) *MongoCouponRepository {
	return &MongoCouponRepository{col: db.Collection("coupons")}
}

func (m *MongoCouponRepository) Insert(ctx context.Context, c *model.Coupon) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := m.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (m *MongoCouponRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Coupon, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoCouponRepository) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return m.findOne(ctx, bson.M{"code": code})
}

func (m *MongoCouponRepository) List(ctx context.Context) ([]model.Coupon, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find coupons: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.Coupon{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode coupons: %w", err)
	}
	return out, nil
}

func (m *MongoCouponRepository) Update(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	set := bson.M{
		"code":                    c.Code,
		"discount_type":           c.DiscountType,
		"discount_amount":         c.DiscountAmount,
		"minimum_purchase_amount": c.MinimumPurchaseAmount,
		"end_date":                c.EndDate,
		"status":                  c.Status,
		"applicable_category":     c.ApplicableCategory,
		"applicable_product":      c.ApplicableProduct,
		"updated_at":              time.Now().UTC(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Coupon
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": c.ID}, bson.M{"$set": set}, opts).Decode(&res)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateKey
	case err != nil:
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	return &res, nil
}

func (m *MongoCouponRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCouponRepository) findOne(ctx context.Context, filter bson.M) (*model.Coupon, error) {
	var res model.Coupon
	err := m.col.FindOne(ctx, filter).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	return &res, nil
}

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

type MongoCategoryRepository struct {
	col *mongo.Collection
}

func NewMongoCategoryRepository(db *mongo.Database) *MongoCategoryRepository {
	return &MongoCategoryRepository{col: db.Collection("categories")}
}

func (m *MongoCategoryRepository) Insert(ctx context.Context, c *model.Category) error {
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
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (m *MongoCategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Category, error) {
	var res model.Category
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &res, nil
}

func (m *MongoCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}

func (m *MongoCategoryRepository) Update(ctx context.Context, c *model.Category) (*model.Category, error) {
	set := bson.M{
		"name":       c.Name,
		"slug":       c.Slug,
		"image":      c.Image,
		"updated_at": time.Now().UTC(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Category
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": c.ID}, bson.M{"$set": set}, opts).Decode(&res)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateKey
	case err != nil:
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &res, nil
}

func (m *MongoCategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection("products")}
}

func (m *MongoProductRepository) Insert(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if _, err := m.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	var res model.Product
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &res, nil
}

func (m *MongoProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Product, error) {
	return m.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (m *MongoProductRepository) List(ctx context.Context) ([]model.Product, error) {
	return m.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (m *MongoProductRepository) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"category_id": categoryID})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (m *MongoProductRepository) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	set := bson.M{
		"name":        p.Name,
		"description": p.Description,
		"quantity":    p.Quantity,
		"price":       p.Price,
		"offer_price": p.OfferPrice,
		"category_id": p.CategoryID,
		"images":      p.Images,
		"updated_at":  time.Now().UTC(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Product
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set}, opts).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &res, nil
}

func (m *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoProductRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]model.Product, error) {
	cur, err := m.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return out, nil
}

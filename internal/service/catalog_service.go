package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type CategoryRepository interface {
	Insert(ctx context.Context, c *model.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, c *model.Category) (*model.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	Insert(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
	Update(ctx context.Context, p *model.Product) (*model.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CatalogService struct {
	categories CategoryRepository
	products   ProductRepository
}

func NewCatalogService(categories CategoryRepository, products ProductRepository) *CatalogService {
	return &CatalogService{categories: categories, products: products}
}

const duplicateCategoryMsg = "A category with this name already exists."

func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CategoryRequest) (*model.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidFields([]string{"name"})
	}
	c := &model.Category{Name: name, Slug: Slugify(name), Image: req.Image}
	if err := s.categories.Insert(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, conflict(duplicateCategoryMsg)
		}
		return nil, persistence(err)
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	out, err := s.categories.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return out, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, rawID string) (*model.Category, error) {
	id, err := parseID(rawID, "category")
	if err != nil {
		return nil, err
	}
	c, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Category")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, rawID string, req dto.CategoryRequest) (*model.Category, error) {
	id, err := parseID(rawID, "category")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidFields([]string{"name"})
	}

	updated, err := s.categories.Update(ctx, &model.Category{ID: id, Name: name, Slug: Slugify(name), Image: req.Image})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("Category")
	case errors.Is(err, repository.ErrDuplicateKey):
		return nil, conflict(duplicateCategoryMsg)
	case err != nil:
		return nil, persistence(err)
	}
	return updated, nil
}

// DeleteCategory se niega si hay productos que la referencian.
func (s *CatalogService) DeleteCategory(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "category")
	if err != nil {
		return err
	}
	n, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return persistence(err)
	}
	if n > 0 {
		return validation("Cannot delete category. Products are referencing it.")
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Category")
		}
		return persistence(err)
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req dto.ProductRequest) (*model.Product, error) {
	p, err := s.productFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	out, err := s.products.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, rawID string) (*model.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Product")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, rawID string, req dto.ProductRequest) (*model.Product, error) {
	id, err := parseID(rawID, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.productFromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	p.ID = id

	updated, err := s.products.Update(ctx, p)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Product")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "product")
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Product")
		}
		return persistence(err)
	}
	return nil
}

func (s *CatalogService) productFromRequest(ctx context.Context, req dto.ProductRequest) (*model.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidFields([]string{"name"})
	}
	if req.Price <= 0 || req.Quantity < 0 {
		return nil, validation("price must be positive and quantity non-negative")
	}
	if req.OfferPrice != nil && *req.OfferPrice > req.Price {
		return nil, validation("offerPrice cannot exceed price")
	}

	catID, err := parseID(req.CategoryID, "category")
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.FindByID(ctx, catID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Category")
		}
		return nil, persistence(err)
	}

	return &model.Product{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		Price:       req.Price,
		OfferPrice:  req.OfferPrice,
		CategoryID:  catID,
		Images:      req.Images,
	}, nil
}

// Slugify "Café Arábica 500g" -> "cafe-arabica-500g".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package service

import (
	"context"
	"errors"
	"strings"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ShippingFeeRepository interface {
	Insert(ctx context.Context, f *model.ShippingFee) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.ShippingFee, error)
	List(ctx context.Context) ([]model.ShippingFee, error)
	Update(ctx context.Context, f *model.ShippingFee) (*model.ShippingFee, error)
	ToggleCOD(ctx context.Context, id primitive.ObjectID) (*model.ShippingFee, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ShippingService struct {
	repo ShippingFeeRepository
}

func NewShippingService(repo ShippingFeeRepository) *ShippingService {
	return &ShippingService{repo: repo}
}

func (s *ShippingService) Create(ctx context.Context, req dto.ShippingFeeRequest) (*model.ShippingFee, error) {
	f, err := shippingFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, f); err != nil {
		return nil, persistence(err)
	}
	return f, nil
}

func (s *ShippingService) List(ctx context.Context) ([]model.ShippingFee, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return out, nil
}

func (s *ShippingService) Get(ctx context.Context, rawID string) (*model.ShippingFee, error) {
	id, err := parseID(rawID, "shipping fee")
	if err != nil {
		return nil, err
	}
	return s.wrap(s.repo.FindByID(ctx, id))
}

func (s *ShippingService) Update(ctx context.Context, rawID string, req dto.ShippingFeeRequest) (*model.ShippingFee, error) {
	id, err := parseID(rawID, "shipping fee")
	if err != nil {
		return nil, err
	}
	f, err := shippingFromRequest(req)
	if err != nil {
		return nil, err
	}
	f.ID = id
	return s.wrap(s.repo.Update(ctx, f))
}

func (s *ShippingService) ToggleCOD(ctx context.Context, rawID string) (*model.ShippingFee, error) {
	id, err := parseID(rawID, "shipping fee")
	if err != nil {
		return nil, err
	}
	return s.wrap(s.repo.ToggleCOD(ctx, id))
}

func (s *ShippingService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "shipping fee")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Shipping fee")
		}
		return persistence(err)
	}
	return nil
}

func (s *ShippingService) wrap(f *model.ShippingFee, err error) (*model.ShippingFee, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Shipping fee")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return f, nil
}

func shippingFromRequest(req dto.ShippingFeeRequest) (*model.ShippingFee, error) {
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		return nil, invalidFields([]string{"destination"})
	}
	if req.Amount < 0 || req.Distance < 0 {
		return nil, validation("amount and distance must not be negative")
	}
	delivery := strings.TrimSpace(req.DeliveryTime)
	if delivery == "" {
		delivery = model.DefaultDeliveryTime
	}
	return &model.ShippingFee{
		Destination:   dest,
		PickupStation: strings.TrimSpace(req.PickupStation),
		Distance:      req.Distance,
		Amount:        req.Amount,
		DeliveryTime:  delivery,
		CODAvailable:  req.CODAvailable,
	}, nil
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	Insert(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddAddress(ctx context.Context, userID primitive.ObjectID, field string, addr model.Address) (bool, error)
	UpdateAddress(ctx context.Context, userID primitive.ObjectID, field string, addr model.Address) error
	RemoveAddress(ctx context.Context, userID primitive.ObjectID, field string, addrID primitive.ObjectID) error
	LinkOrder(ctx context.Context, userID, orderID primitive.ObjectID) error
	UnlinkOrder(ctx context.Context, userID, orderID primitive.ObjectID) error
	AddLoyaltyPoints(ctx context.Context, userID primitive.ObjectID, points float64) error
	SetResetCode(ctx context.Context, userID primitive.ObjectID, prev *time.Time, hash string, expires, now time.Time) error
	ConsumeResetCode(ctx context.Context, userID primitive.ObjectID, codeHash, passwordHash string) error
	SetVerificationCode(ctx context.Context, userID primitive.ObjectID, prev *time.Time, hash string, expires, now time.Time, count int) error
	MarkEmailVerified(ctx context.Context, userID primitive.ObjectID, codeHash string) error
}

const (
	guestPasswordLength = 12
	guestBcryptCost     = 12
	usernameAttempts    = 3
)

// resolveAccount devuelve la cuenta del comprador. Con usuario autenticado la
// carga; como invitado la busca por email y si no existe la crea.
// Las credenciales sólo vuelven cuando se creó una cuenta nueva.
func (s *OrderService) resolveAccount(ctx context.Context, authUserID string, req *dto.CreateOrderRequest) (*model.User, *model.Credentials, error) {
	ship := toAddress(req.ShippingAddress)

	if authUserID != "" {
		id, err := parseID(authUserID, "user")
		if err != nil {
			return nil, nil, err
		}
		u, err := s.Users.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFound("Account")
		}
		if err != nil {
			return nil, nil, persistence(err)
		}
		s.saveAddresses(ctx, u.ID, ship, req.BillingAddress)
		return u, nil, nil
	}

	email := guestEmail(req)
	u, err := s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.saveAddresses(ctx, u.ID, ship, req.BillingAddress)
		return u, nil, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, nil, persistence(err)
	}

	return s.provisionGuest(ctx, email, ship, req)
}

func (s *OrderService) provisionGuest(ctx context.Context, email string, ship model.Address, req *dto.CreateOrderRequest) (*model.User, *model.Credentials, error) {
	password, err := randomString(guestPasswordLength, passwordAlphabet)
	if err != nil {
		return nil, nil, persistence(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), guestBcryptCost)
	if err != nil {
		return nil, nil, persistence(err)
	}

	accountType := req.Customer.AccountType
	if accountType == "" {
		accountType = model.AccountPersonal
	}
	ship.ID = primitive.NewObjectID()

	base := usernameFromEmail(email)
	username := base
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		u := &model.User{
			Username:          username,
			Email:             email,
			PhoneNumber:       firstNonEmpty(req.Customer.Phone, ship.Phone),
			PasswordHash:      string(hash),
			AccountType:       accountType,
			Role:              model.RoleCustomer,
			ShippingAddresses: []model.Address{ship},
		}
		if accountType == model.AccountBusiness {
			u.CompanyName = req.Customer.CompanyName
			u.BusinessAddress = req.Customer.BusinessAddress
			u.KRAPin = req.Customer.KRAPin
		}

		err := s.Users.Insert(ctx, u)
		if err == nil {
			log.Info().Str("tenant", s.cfg.Tenant).Str("username", u.Username).Msg("cuenta creada en checkout")
			return u, &model.Credentials{Username: u.Username, Password: password}, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, nil, persistence(err)
		}

		// Choque de clave única: o otro checkout creó la cuenta con este email,
		// o el username ya está tomado por otra persona.
		existing, ferr := s.Users.FindByEmail(ctx, email)
		if ferr == nil {
			s.saveAddresses(ctx, existing.ID, ship, req.BillingAddress)
			return existing, nil, nil
		}
		if !errors.Is(ferr, repository.ErrNotFound) {
			return nil, nil, persistence(ferr)
		}
		suffix, err := randomString(4, digits)
		if err != nil {
			return nil, nil, persistence(err)
		}
		username = base + suffix
	}
	return nil, nil, conflict("Could not allocate a username for " + email)
}

// saveAddresses errores acá no frenan la orden: la dirección ya viaja en el snapshot.
func (s *OrderService) saveAddresses(ctx context.Context, userID primitive.ObjectID, ship model.Address, billing *dto.AddressDTO) {
	if _, err := s.Users.AddAddress(ctx, userID, repository.ShippingAddresses, ship); err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("no se pudo guardar la dirección de envío")
	}
	if billing == nil {
		return
	}
	if _, err := s.Users.AddAddress(ctx, userID, repository.BillingAddresses, toAddress(*billing)); err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("no se pudo guardar la dirección de facturación")
	}
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "customer"
	}
	return local
}

const (
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%"
	digits           = "0123456789"
)

func randomString(n int, alphabet string) (string, error) {
	var b strings.Builder
	n64 := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, n64)
		if err != nil {
			return "", fmt.Errorf("random: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// CodeMailer envía los códigos de reseteo y verificación.
type CodeMailer interface {
	PasswordResetCode(ctx context.Context, u *model.User, code string) error
	VerificationCode(ctx context.Context, u *model.User, code string) error
}

type TokenIssuer interface {
	Issue(u *model.User, rememberMe bool) (string, time.Time, error)
}

const (
	codeTTL               = time.Hour
	codeCooldown          = time.Minute
	verificationWindow    = 24 * time.Hour
	maxVerificationPerDay = 5
)

type UserService struct {
	tenant  string
	users   UserRepository
	tokens  TokenIssuer
	mailer  CodeMailer
	timeout time.Duration
	now     func() time.Time
}

func NewUserService(tenant string, users UserRepository, tokens TokenIssuer, mailer CodeMailer, timeout time.Duration) *UserService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UserService{tenant: tenant, users: users, tokens: tokens, mailer: mailer, timeout: timeout, now: time.Now}
}

const duplicateUserMsg = "Username or email already in use"

func (s *UserService) Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	accountType := req.AccountType
	if accountType == "" {
		accountType = model.AccountPersonal
	}
	if accountType == model.AccountBusiness {
		var missing []string
		if strings.TrimSpace(req.CompanyName) == "" {
			missing = append(missing, "companyName")
		}
		if strings.TrimSpace(req.BusinessAddress) == "" {
			missing = append(missing, "businessAddress")
		}
		if strings.TrimSpace(req.KRAPin) == "" {
			missing = append(missing, "kraPin")
		}
		if len(missing) > 0 {
			return nil, invalidFields(missing)
		}
	}

	exists, err := s.users.ExistsUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, persistence(err)
	}
	if exists {
		return nil, conflict(duplicateUserMsg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, persistence(err)
	}

	u := &model.User{
		Username:     username,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		PasswordHash: string(hash),
		AccountType:  accountType,
		Role:         model.RoleCustomer,
	}
	if accountType == model.AccountBusiness {
		u.CompanyName = strings.TrimSpace(req.CompanyName)
		u.BusinessAddress = strings.TrimSpace(req.BusinessAddress)
		u.KRAPin = strings.TrimSpace(req.KRAPin)
	}

	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, conflict(duplicateUserMsg)
		}
		return nil, persistence(err)
	}
	log.Info().Str("tenant", s.tenant).Str("username", u.Username).Msg("usuario registrado")
	return u, nil
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

func (s *UserService) Login(ctx context.Context, req dto.LoginRequest) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, persistence(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, unauthorized("Invalid email or password")
	}

	token, exp, err := s.tokens.Issue(u, req.RememberMe)
	if err != nil {
		return nil, persistence(err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *UserService) Get(ctx context.Context, rawID string) (*model.User, error) {
	id, err := parseID(rawID, "user")
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	out, err := s.users.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return out, nil
}

func (s *UserService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "user")
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("User")
		}
		return persistence(err)
	}
	return nil
}

// AddAddress mismo criterio que el checkout: sin duplicados y hasta 3.
func (s *UserService) AddAddress(ctx context.Context, rawUserID string, req dto.AddressRequest) (*model.User, error) {
	id, err := parseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	addr, err := checkedAddress(req.Address)
	if err != nil {
		return nil, err
	}

	added, err := s.users.AddAddress(ctx, id, addressField(req.Kind), addr)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User")
	}
	if err != nil {
		return nil, persistence(err)
	}
	if !added {
		return nil, validation("Address already saved or the limit of %d addresses was reached", model.MaxSavedAddresses)
	}
	return s.findUser(ctx, id)
}

func (s *UserService) UpdateAddress(ctx context.Context, rawUserID, rawAddrID string, req dto.AddressRequest) (*model.User, error) {
	id, err := parseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	addrID, err := parseID(rawAddrID, "address")
	if err != nil {
		return nil, err
	}
	addr, err := checkedAddress(req.Address)
	if err != nil {
		return nil, err
	}
	addr.ID = addrID

	if err := s.users.UpdateAddress(ctx, id, addressField(req.Kind), addr); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Address")
		}
		return nil, persistence(err)
	}
	return s.findUser(ctx, id)
}

func (s *UserService) DeleteAddress(ctx context.Context, rawUserID, rawAddrID, kind string) (*model.User, error) {
	id, err := parseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	addrID, err := parseID(rawAddrID, "address")
	if err != nil {
		return nil, err
	}
	if err := s.users.RemoveAddress(ctx, id, addressField(kind), addrID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Address")
		}
		return nil, persistence(err)
	}
	return s.findUser(ctx, id)
}

// RequestPasswordReset genera un código de 6 dígitos válido por una hora.
// Se guarda sólo el hash.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	now := s.now()
	if u.LastResetRequest != nil && now.Sub(*u.LastResetRequest) < codeCooldown {
		return validation("Please wait a minute before requesting another code")
	}

	code, hash, err := newCode()
	if err != nil {
		return persistence(err)
	}
	err = s.users.SetResetCode(ctx, u.ID, u.LastResetRequest, hash, now.Add(codeTTL), now)
	if errors.Is(err, repository.ErrStale) {
		return validation("Please wait a minute before requesting another code")
	}
	if err != nil {
		return persistence(err)
	}

	return s.sendCode(ctx, func(ctx context.Context) error { return s.mailer.PasswordResetCode(ctx, u, code) })
}

func (s *UserService) VerifyResetCode(ctx context.Context, email, code string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.checkCode(u.ResetCodeHash, u.ResetExpiresAt, code, "Invalid or expired reset code")
}

// ResetPassword el código es de un solo uso: se borra en el mismo update.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkCode(u.ResetCodeHash, u.ResetExpiresAt, code, "Invalid or expired reset code"); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return persistence(err)
	}
	err = s.users.ConsumeResetCode(ctx, u.ID, u.ResetCodeHash, string(hash))
	if errors.Is(err, repository.ErrStale) {
		return validation("Invalid or expired reset code")
	}
	if err != nil {
		return persistence(err)
	}
	log.Info().Str("tenant", s.tenant).Str("user_id", u.ID.Hex()).Msg("contraseña restablecida")
	return nil
}

// RequestVerification como máximo un pedido por minuto y 5 por día.
func (s *UserService) RequestVerification(ctx context.Context, rawUserID string) error {
	id, err := parseID(rawUserID, "user")
	if err != nil {
		return err
	}
	u, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return validation("Email is already verified")
	}

	now := s.now()
	count := 1
	if last := u.LastVerificationRequest; last != nil {
		if now.Sub(*last) < codeCooldown {
			return validation("Please wait a minute before requesting another code")
		}
		if now.Sub(*last) < verificationWindow {
			count = u.VerificationRequestCount + 1
		}
	}
	if count > maxVerificationPerDay {
		return validation("Too many verification requests, try again tomorrow")
	}

	code, hash, err := newCode()
	if err != nil {
		return persistence(err)
	}
	err = s.users.SetVerificationCode(ctx, u.ID, u.LastVerificationRequest, hash, now.Add(codeTTL), now, count)
	if errors.Is(err, repository.ErrStale) {
		return validation("Please wait a minute before requesting another code")
	}
	if err != nil {
		return persistence(err)
	}

	return s.sendCode(ctx, func(ctx context.Context) error { return s.mailer.VerificationCode(ctx, u, code) })
}

func (s *UserService) ConfirmVerification(ctx context.Context, rawUserID, code string) error {
	id, err := parseID(rawUserID, "user")
	if err != nil {
		return err
	}
	u, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkCode(u.VerificationCodeHash, u.VerificationExpiresAt, code, "Invalid or expired verification code"); err != nil {
		return err
	}
	err = s.users.MarkEmailVerified(ctx, u.ID, u.VerificationCodeHash)
	if errors.Is(err, repository.ErrStale) {
		return validation("Invalid or expired verification code")
	}
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (s *UserService) checkCode(hash string, expires *time.Time, code, msg string) error {
	if hash == "" || expires == nil || !s.now().Before(*expires) {
		return validationMsg(msg)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return validationMsg(msg)
	}
	return nil
}

func (s *UserService) sendCode(ctx context.Context, send func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := send(ctx); err != nil {
		log.Error().Err(err).Str("tenant", s.tenant).Msg("no se pudo enviar el código")
		return upstream("Could not send the code, please try again", err)
	}
	return nil
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return u, nil
}

func (s *UserService) findUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return u, nil
}

func checkedAddress(in dto.AddressDTO) (model.Address, error) {
	a := toAddress(in)
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"address", a.Address},
		{"city", a.City},
		{"postalCode", a.PostalCode},
	} {
		if f.v == "" {
			missing = append(missing, "address."+f.name)
		}
	}
	if len(missing) > 0 {
		return a, invalidFields(missing)
	}
	return a, nil
}

func addressField(kind string) string {
	if kind == "billing" {
		return repository.BillingAddresses
	}
	return repository.ShippingAddresses
}

func newCode() (code, hash string, err error) {
	code, err = randomString(6, digits)
	if err != nil {
		return "", "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(h), nil
}

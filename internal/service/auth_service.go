package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"storefront-service/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// Servicio que emite y valida los tokens de sesión (JWT HS256).
// El issuer es el tenant: un token de arobisca no sirve en playbox.
type AuthService struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

type AuthUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type claims struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

func NewAuthService(secret, issuer string, ttl, rememberTTL time.Duration) *AuthService {
	return &AuthService{
		secret:      []byte(secret),
		issuer:      issuer,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// Verifica si el usuario tiene permiso de administrador.
func (a *AuthService) IsAdmin(user *AuthUser) bool {
	return slices.Contains(user.Permissions, model.RoleAdmin)
}

// Issue firma un token para el usuario. rememberMe extiende la expiración.
func (a *AuthService) Issue(u *model.User, rememberMe bool) (string, time.Time, error) {
	ttl := a.ttl
	if rememberMe {
		ttl = a.rememberTTL
	}
	now := a.now()
	exp := now.Add(ttl)

	perms := []string{model.RoleCustomer}
	if u.IsAdmin() {
		perms = []string{model.RoleAdmin}
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:        u.Username,
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken verifica firma, expiración e issuer.
func (a *AuthService) ValidateToken(token string) (*AuthUser, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if c.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return &AuthUser{ID: c.Subject, Name: c.Name, Permissions: c.Permissions}, nil
}

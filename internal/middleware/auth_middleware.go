// auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey          = "userID"
	UserNameKey        = "userName"
	UserPermissionsKey = "userPermissions"
)

type TokenValidator interface {
	ValidateToken(token string) (*service.AuthUser, error)
}

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}
		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth sin header sigue como invitado; con un token inválido corta igual.
func OptionalAuth(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token != "" && !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, auth TokenValidator, token string) bool {
	user, err := auth.ValidateToken(token)
	if err != nil {
		abort(c, http.StatusUnauthorized, "invalid or expired token")
		return false
	}

	// Guardamos los datos del usuario en el contexto
	c.Set(UserIDKey, user.ID)
	c.Set(UserNameKey, user.Name)
	c.Set(UserPermissionsKey, user.Permissions)
	return true
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

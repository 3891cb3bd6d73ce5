// admin_only.go
package middleware

import (
	"net/http"
	"slices"

	"storefront-service/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func IsAdmin(c *gin.Context) bool {
	return slices.Contains(c.GetStringSlice(UserPermissionsKey), model.RoleAdmin)
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			log.Debug().Str("user_id", c.GetString(UserIDKey)).Str("path", c.FullPath()).Msg("acceso admin denegado")
			abort(c, http.StatusForbidden, "admin privileges required")
			return
		}
		c.Next()
	}
}

// OwnerOrAdmin deja pasar al dueño del recurso (param con su id) o a un admin.
func OwnerOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAdmin(c) || c.GetString(UserIDKey) == c.Param(param) {
			c.Next()
			return
		}
		abort(c, http.StatusForbidden, "you cannot access another user's resources")
	}
}

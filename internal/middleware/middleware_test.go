package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]*service.AuthUser

func (s stubValidator) ValidateToken(token string) (*service.AuthUser, error) {
	u, ok := s[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return u, nil
}

var users = stubValidator{
	"admin-token": {ID: "a1", Name: "root", Permissions: []string{"admin"}},
	"user-token":  {ID: "u1", Name: "amina", Permissions: []string{"customer"}},
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())

	whoami := func(c *gin.Context) { c.String(http.StatusOK, "id=%s", c.GetString(UserIDKey)) }

	r.GET("/optional", OptionalAuth(users), whoami)
	auth := r.Group("/", AuthMiddleware(users))
	auth.GET("/me", whoami)
	auth.GET("/admin", AdminOnly(), whoami)
	auth.GET("/users/:userId", OwnerOrAdmin("userId"), whoami)
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	w := do(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"missing authorization header"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	w = do(r, "/me", "user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id=u1", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter()

	w := do(r, "/optional", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id=", w.Body.String())

	assert.Equal(t, "id=u1", do(r, "/optional", "user-token").Body.String())
	assert.Equal(t, http.StatusUnauthorized, do(r, "/optional", "garbage").Code)
}

func TestAdminAndOwnerGuards(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "user-token").Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", "admin-token").Code)

	assert.Equal(t, http.StatusOK, do(r, "/users/u1", "user-token").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/users/u2", "user-token").Code)
	assert.Equal(t, http.StatusOK, do(r, "/users/u2", "admin-token").Code)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

type countingSweeper struct{ n atomic.Int32 }

func (s *countingSweeper) Trigger() bool {
	s.n.Add(1)
	return true
}

func TestSweepTrigger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &countingSweeper{}
	r := gin.New()
	r.Use(SweepTrigger(s))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do(r, "/x", "")
	do(r, "/x", "")
	assert.Equal(t, int32(2), s.n.Load())
}

package controller

import (
	"context"
	"net/http"

	"storefront-service/internal/dto"
	"storefront-service/internal/middleware"
	"storefront-service/internal/model"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

type UserService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (*service.LoginResult, error)
	Get(ctx context.Context, rawID string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, rawID string) error
	AddAddress(ctx context.Context, rawUserID string, req dto.AddressRequest) (*model.User, error)
	UpdateAddress(ctx context.Context, rawUserID, rawAddrID string, req dto.AddressRequest) (*model.User, error)
	DeleteAddress(ctx context.Context, rawUserID, rawAddrID, kind string) (*model.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	RequestVerification(ctx context.Context, rawUserID string) error
	ConfirmVerification(ctx context.Context, rawUserID, code string) error
}

type UserController struct {
	Service UserService
}

func NewUserController(s UserService) *UserController {
	return &UserController{Service: s}
}

// POST /users/register
func (ctl *UserController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := ctl.Service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", u)
}

// POST /users/login
func (ctl *UserController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ctl.Service.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", res)
}

// GET /users — admin only
func (ctl *UserController) List(c *gin.Context) {
	users, err := ctl.Service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Users retrieved successfully", users)
}

// GET /users/:id — dueño o admin
func (ctl *UserController) Get(c *gin.Context) {
	u, err := ctl.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User retrieved successfully", u)
}

// DELETE /users/:id — admin only
func (ctl *UserController) Delete(c *gin.Context) {
	if err := ctl.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", nil)
}

// POST /users/:id/addresses
func (ctl *UserController) AddAddress(c *gin.Context) {
	var req dto.AddressRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := ctl.Service.AddAddress(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Address added successfully", u)
}

// PUT /users/:id/addresses/:addressId
func (ctl *UserController) UpdateAddress(c *gin.Context) {
	var req dto.AddressRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := ctl.Service.UpdateAddress(c.Request.Context(), c.Param("id"), c.Param("addressId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Address updated successfully", u)
}

// DELETE /users/:id/addresses/:addressId?kind=billing
func (ctl *UserController) DeleteAddress(c *gin.Context) {
	u, err := ctl.Service.DeleteAddress(c.Request.Context(), c.Param("id"), c.Param("addressId"), c.Query("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Address deleted successfully", u)
}

// POST /password/request-reset
func (ctl *UserController) RequestPasswordReset(c *gin.Context) {
	var req dto.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.Service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password reset code sent", nil)
}

// POST /password/verify-reset
func (ctl *UserController) VerifyResetCode(c *gin.Context) {
	var req dto.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.Service.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Reset code is valid", nil)
}

// POST /password/reset
func (ctl *UserController) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.Service.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password has been reset", nil)
}

// POST /verification/request — sobre la cuenta del token
func (ctl *UserController) RequestVerification(c *gin.Context) {
	if err := ctl.Service.RequestVerification(c.Request.Context(), c.GetString(middleware.UserIDKey)); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Verification code sent", nil)
}

// POST /verification/confirm
func (ctl *UserController) ConfirmVerification(c *gin.Context) {
	var req dto.ConfirmVerificationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.Service.ConfirmVerification(c.Request.Context(), c.GetString(middleware.UserIDKey), req.Code); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Email verified successfully", nil)
}

package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Envelope es la forma de todas las respuestas.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Envelope{Success: true, Message: msg, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Envelope{Success: false, Message: msg})
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError traduce el error del servicio. Los 500 no exponen la causa.
func respondError(c *gin.Context, err error) {
	status := mapErrorToStatusCode(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("error interno")
		fail(c, status, "Internal server error")
		return
	}
	_ = c.Error(err)

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		fail(c, status, svcErr.Message)
		return
	}
	fail(c, status, err.Error())
}

// bindJSON responde 400 con los campos inválidos si el body no valida.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, bindingMessage(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		fail(c, http.StatusBadRequest, bindingMessage(err))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return "Missing or invalid fields: " + formatValidationErrors(verrs)
	}
	return "Invalid request payload: " + err.Error()
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s (%s=%s)", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

// fieldPath "CreateOrderRequest.Items[0].Price" -> "items[0].price"
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		rest = ns
	}
	segs := strings.Split(rest, ".")
	for i, s := range segs {
		if s != "" {
			segs[i] = strings.ToLower(s[:1]) + s[1:]
		}
	}
	return strings.Join(segs, ".")
}

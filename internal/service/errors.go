package service

import (
	"errors"
	"fmt"
	"strings"
)

// Tipos de error de negocio. El controller los traduce a códigos HTTP.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream error")
	ErrPersistence  = errors.New("persistence error")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error lleva el tipo, un mensaje apto para el cliente y la causa.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func validationMsg(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// invalidFields arma un ValidationError que enumera los campos faltantes.
func invalidFields(fields []string) error {
	return &Error{Kind: ErrValidation, Message: "Missing or invalid fields: " + strings.Join(fields, ", ")}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

func conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func upstream(msg string, err error) error {
	return &Error{Kind: ErrUpstream, Message: msg, Err: err}
}

func persistence(err error) error {
	return &Error{Kind: ErrPersistence, Message: "internal server error", Err: err}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

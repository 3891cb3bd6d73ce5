package controller

import (
	"context"
	"io"
	"net/http"
	"time"

	"storefront-service/internal/dto"
	"storefront-service/internal/model"
	"storefront-service/internal/mpesa"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PaymentService interface {
	HandleCallback(ctx context.Context, raw []byte) (*model.Transaction, error)
	InitiateSTK(ctx context.Context, req dto.STKRequest) (*mpesa.STKResult, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
}

// EventSource suscripción a los eventos de pago en vivo (live.Hub).
type EventSource interface {
	Subscribe() (string, <-chan model.PaymentEvent, func())
}

const maxCallbackBody = 1 << 20

type PaymentController struct {
	Service   PaymentService
	Hub       EventSource
	keepAlive time.Duration
}

func NewPaymentController(s PaymentService, events EventSource) *PaymentController {
	return &PaymentController{Service: s, Hub: events, keepAlive: 25 * time.Second}
}

// POST /payment/result — webhook del proveedor, sin token
func (ctl *PaymentController) Callback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid callback payload")
		return
	}
	tx, err := ctl.Service.HandleCallback(c.Request.Context(), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Callback received", gin.H{"transactionId": tx.TransactionID, "status": tx.Status})
}

// POST /payment/stk
func (ctl *PaymentController) InitiateSTK(c *gin.Context) {
	var req dto.STKRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ctl.Service.InitiateSTK(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "STK push initiated", res)
}

// GET /payment/transactions/:id — admin only
func (ctl *PaymentController) GetTransaction(c *gin.Context) {
	tx, err := ctl.Service.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Transaction retrieved successfully", tx)
}

// GET /payment/events — Server-Sent Events
func (ctl *PaymentController) Events(c *gin.Context) {
	id, events, cancel := ctl.Hub.Subscribe()
	defer cancel()
	log.Debug().Str("subscriber", id).Msg("cliente SSE conectado")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"subscriberId": id})
	c.Writer.Flush()

	ticker := time.NewTicker(ctl.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("payment", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
	log.Debug().Str("subscriber", id).Msg("cliente SSE desconectado")
}

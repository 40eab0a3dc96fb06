package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/middleware"
)

// TransactionHandler drives the payment workflow: a form is submitted,
// then confirmed with the PIN or cancelled
type TransactionHandler struct {
	payments usecase.PaymentUseCase
	logger   coreport.Logger
}

// NewTransactionHandler creates a new transaction handler instance
func NewTransactionHandler(payments usecase.PaymentUseCase, logger coreport.Logger) *TransactionHandler {
	return &TransactionHandler{payments: payments, logger: logger}
}

// Transfer handles POST /api/v1/payments/transfer
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	h.submit(c, entity.KindTransfer, req.Form())
}

// Airtime handles POST /api/v1/payments/airtime
func (h *TransactionHandler) Airtime(c *gin.Context) {
	var req dto.AirtimeRequest
	if !bindJSON(c, &req) {
		return
	}
	h.submit(c, entity.KindAirtime, req.Form())
}

// Bill handles POST /api/v1/payments/bills
func (h *TransactionHandler) Bill(c *gin.Context) {
	var req dto.BillRequest
	if !bindJSON(c, &req) {
		return
	}
	h.submit(c, entity.KindBill, req.Form())
}

func (h *TransactionHandler) submit(c *gin.Context, kind entity.PaymentKind, form entity.PaymentForm) {
	sub, err := h.payments.Submit(c.Request.Context(), middleware.CurrentSession(c), kind, form)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSubmissionResponse(sub))
}

// Get handles GET /api/v1/payments/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	sub, err := h.payments.Get(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubmissionResponse(sub))
}

// Confirm handles POST /api/v1/payments/:id/confirm
func (h *TransactionHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.payments.Confirm(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), req.PIN)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.logger.Debug("Payment confirmed over API", map[string]any{
		"submission_id":  c.Param("id"),
		"transaction_id": receipt.TransactionID,
	})
	c.JSON(http.StatusOK, dto.NewReceiptResponse(receipt))
}

// Cancel handles POST /api/v1/payments/:id/cancel
func (h *TransactionHandler) Cancel(c *gin.Context) {
	sub, err := h.payments.Cancel(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubmissionResponse(sub))
}

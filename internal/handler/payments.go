package handler

import (
	"net/http"

	"invoicetool/internal/dto"
	"invoicetool/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// Register godoc
// @Summary      Register a payment
// @Description  Books a payment (negative amounts are refunds) and recomputes the invoice status.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                     true "Invoice UUID"
// @Param        body body     dto.RegisterPaymentRequest true "Payment"
// @Success      201  {object} dto.RegisterPaymentResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/invoices/{id}/payments [post]
func (h *PaymentsHandler) Register(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.RegisterPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Reconcile godoc
// @Summary      Reconcile bank transactions
// @Description  Matches transactions to invoices by reference. Unknown references are returned as unmatched.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.ReconcileRequest true "Bank statement lines"
// @Success      200  {object} dto.ReconcileResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/payments/reconcile [post]
func (h *PaymentsHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Reconcile(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
